package container

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"
)

// Label keys applied to every container this engine starts. All keys
// share the "rasterbatch." prefix so they do not collide with labels set
// by other tools.
const (
	// LabelPrefix is the common prefix for all rasterbatch labels.
	LabelPrefix = "rasterbatch."

	// LabelManagedBy marks containers started by rasterbatch.
	// Value: always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelRunID stores the identifier of the run that started the
	// container.
	LabelRunID = LabelPrefix + "run-id"

	// LabelStep stores the engine operation: classify, tabulate,
	// describe or copy-band.
	LabelStep = LabelPrefix + "step"

	// LabelInput stores the absolute path of the raster being processed.
	LabelInput = LabelPrefix + "input"

	// LabelCreatedAt stores the RFC3339 creation timestamp (UTC).
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the value of LabelManagedBy.
const ManagedByValue = "rasterbatch"

// Steps recorded in LabelStep.
const (
	StepClassify = "classify"
	StepTabulate = "tabulate"
	StepDescribe = "describe"
	StepCopyBand = "copy-band"
)

// JobLabels describes the container of one engine call.
type JobLabels struct {
	RunID     string
	Step      string
	Input     string
	CreatedAt time.Time
}

// BuildLabels constructs the Docker label map for a job.
func BuildLabels(j JobLabels) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelRunID:     j.RunID,
		LabelStep:      j.Step,
		LabelInput:     j.Input,
		LabelCreatedAt: j.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels reconstructs JobLabels from a container's labels. It fails
// when a required label is missing or the container is not managed by
// rasterbatch.
func ParseLabels(labels map[string]string) (JobLabels, error) {
	required := []string{LabelManagedBy, LabelRunID, LabelStep, LabelCreatedAt}

	var missing []string
	for _, key := range required {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return JobLabels{}, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}
	if labels[LabelManagedBy] != ManagedByValue {
		return JobLabels{}, fmt.Errorf("label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return JobLabels{}, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}
	return JobLabels{
		RunID:     labels[LabelRunID],
		Step:      labels[LabelStep],
		Input:     labels[LabelInput],
		CreatedAt: createdAt,
	}, nil
}

// RunFilter returns a container list filter matching the containers of
// one run, or of every run when runID is empty.
func RunFilter(runID string) filters.Args {
	args := filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+ManagedByValue))
	if runID != "" {
		args.Add("label", LabelRunID+"="+runID)
	}
	return args
}
