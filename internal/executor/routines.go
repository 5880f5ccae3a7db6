package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxworks/studio-api/internal/domain"
)

// ProgressFunc persists and publishes one checkpoint. It returns an error
// when the attempt must stop, for example because the job was cancelled
// externally between checkpoints.
type ProgressFunc func(ctx context.Context, progress int) error

// RoutineOutcome is the payload a routine produces on success. The executor
// turns it into the job's durable JobResult.
type RoutineOutcome struct {
	ResultURL string
	Logs      string
	Meta      map[string]any
}

// Routine executes the type-specific work for one job attempt, reporting a
// bounded sequence of monotonically increasing checkpoints that ends at 100
// on success. A routine signals logical failure by returning an error that
// wraps ErrRoutineFailed; any other error (or panic) counts as an unexpected
// fault and is retried by the executor.
type Routine interface {
	// Type returns the job type this routine handles.
	Type() domain.JobType

	// Run drives the attempt to completion, invoking report at every
	// checkpoint. It must stop promptly when report returns an error.
	Run(ctx context.Context, job *domain.Job, report ProgressFunc) (*RoutineOutcome, error)
}

// Registry resolves job types to routines, falling back to a generic routine
// for unrecognized types.
type Registry struct {
	routines map[domain.JobType]Routine
	fallback Routine
}

// NewRegistry creates a registry with the given fallback routine.
func NewRegistry(fallback Routine) *Registry {
	return &Registry{
		routines: make(map[domain.JobType]Routine),
		fallback: fallback,
	}
}

// Register binds a routine to its job type, replacing any previous binding.
func (r *Registry) Register(routine Routine) {
	if routine == nil {
		return
	}
	r.routines[routine.Type()] = routine
}

// Resolve returns the routine for the given job type, or the fallback when
// the type is unrecognized.
func (r *Registry) Resolve(jobType domain.JobType) Routine {
	if routine, ok := r.routines[jobType]; ok {
		return routine
	}
	return r.fallback
}

// NewDefaultRegistry builds the registry for all supported job types. The
// routines simulate the real AI pipelines: they emit the same checkpoint
// cadences and produce plausible results, logs, and metadata, with delay
// between checkpoints standing in for actual work.
func NewDefaultRegistry(delay time.Duration) *Registry {
	registry := NewRegistry(&simulatedRoutine{
		jobType:    "",
		step:       10,
		delay:      delay,
		startLine:  "Processing generic job",
		finishLine: "Generic job processing completed",
		resultName: "output",
		meta: func(job *domain.Job) map[string]any {
			return map[string]any{"processed": true}
		},
	})

	registry.Register(&simulatedRoutine{
		jobType:    domain.JobTypeSTT,
		step:       20,
		delay:      delay,
		startLine:  "Starting STT processing",
		finishLine: "STT processing completed successfully",
		resultName: "transcription.txt",
		milestones: map[int]string{
			20: "Audio file loaded and analyzed",
			40: "Speech recognition in progress",
			60: "Transcribing audio segments",
			80: "Post-processing transcription",
		},
		meta: func(job *domain.Job) map[string]any {
			return map[string]any{
				"language":         "en",
				"duration_seconds": 120,
				"word_count":       450,
				"confidence":       0.92,
			}
		},
	})

	registry.Register(&simulatedRoutine{
		jobType:    domain.JobTypeTTS,
		step:       15,
		delay:      delay,
		startLine:  "Starting TTS processing",
		finishLine: "TTS processing completed successfully",
		resultName: "output_audio.mp3",
		milestones: map[int]string{
			15: "Text input parsed and validated",
			30: "Generating phonemes and prosody",
			45: "Synthesizing audio waveform",
			60: "Applying voice characteristics",
			75: "Post-processing audio",
		},
		meta: func(job *domain.Job) map[string]any {
			return map[string]any{
				"voice":            "en-US-Neural2-F",
				"format":           "MP3",
				"duration_seconds": 45,
				"sample_rate":      22050,
			}
		},
	})

	registry.Register(&simulatedRoutine{
		jobType:    domain.JobTypeVoiceCloning,
		step:       10,
		delay:      delay,
		startLine:  "Starting voice cloning",
		finishLine: "Voice cloning completed successfully",
		resultName: "cloned_voice.mp3",
		milestones: map[int]string{
			10: "Reference audio loaded and analyzed",
			20: "Extracting voice characteristics",
			30: "Building voice model",
			50: "Training voice encoder",
			70: "Generating cloned voice samples",
			90: "Fine-tuning voice output",
		},
		meta: func(job *domain.Job) map[string]any {
			return map[string]any{
				"model_id":         fmt.Sprintf("voice_model_%s", job.ID),
				"similarity_score": 0.89,
				"training_samples": 120,
				"output_format":    "MP3",
			}
		},
	})

	registry.Register(&simulatedRoutine{
		jobType:    domain.JobTypeDubbing,
		step:       12,
		delay:      delay,
		startLine:  "Starting dubbing",
		finishLine: "Dubbing completed successfully",
		resultName: "dubbed_video.mp4",
		milestones: map[int]string{
			12: "Video file loaded and analyzed",
			24: "Extracting audio track",
			36: "Transcribing original audio",
			48: "Translating transcript",
			60: "Generating translated speech",
			72: "Synchronizing audio with video",
			84: "Rendering final video",
		},
		meta: func(job *domain.Job) map[string]any {
			return map[string]any{
				"source_language":        "en",
				"target_language":        "es",
				"video_duration_seconds": 180,
				"translation_accuracy":   0.94,
				"sync_quality":           "high",
			}
		},
	})

	registry.Register(&simulatedRoutine{
		jobType:    domain.JobTypeAIStories,
		step:       8,
		delay:      delay,
		startLine:  "Starting AI story generation",
		finishLine: "AI story generation completed successfully",
		resultName: "story_video.mp4",
		milestones: map[int]string{
			8:  "Story script loaded and parsed",
			16: "Generating story structure",
			32: "Creating character animations",
			48: "Generating talking head animations",
			64: "Synthesizing voice narration",
			80: "Compositing final story video",
		},
		meta: func(job *domain.Job) map[string]any {
			return map[string]any{
				"story_length":    300,
				"characters":      2,
				"scenes":          5,
				"animation_style": "realistic",
				"output_format":   "MP4",
			}
		},
	})

	return registry
}

// simulatedRoutine walks a fixed checkpoint ladder from 0 to 100 in `step`
// increments, appending a log line at each named milestone.
type simulatedRoutine struct {
	jobType    domain.JobType
	step       int
	delay      time.Duration
	startLine  string
	finishLine string
	resultName string
	milestones map[int]string
	meta       func(job *domain.Job) map[string]any
}

func (r *simulatedRoutine) Type() domain.JobType {
	return r.jobType
}

func (r *simulatedRoutine) Run(
	ctx context.Context,
	job *domain.Job,
	report ProgressFunc,
) (*RoutineOutcome, error) {
	var logs []string
	logLine := func(text string) {
		logs = append(logs, fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), text))
	}

	logLine(fmt.Sprintf("%s for job %s", r.startLine, job.ID))

	for progress := r.step; ; progress += r.step {
		if progress > 100 {
			progress = 100
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}

		if err := report(ctx, progress); err != nil {
			return nil, err
		}

		if line, ok := r.milestones[progress]; ok {
			logLine(line)
		}

		if progress == 100 {
			break
		}
	}

	logLine(r.finishLine)

	return &RoutineOutcome{
		ResultURL: fmt.Sprintf("https://media.voxworks.dev/results/%s/%s", job.ID, r.resultName),
		Logs:      strings.Join(logs, "\n"),
		Meta:      r.meta(job),
	}, nil
}
