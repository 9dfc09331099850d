package apply

import (
	"context"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
)

// View is the presentation the engine renders the model into.
type View interface {
	// Render rebuilds the presentation from s. The engine holds the model lock.
	Render(s *sheet.Sheet) error
	// ApplyRecord writes raw input echoes from rec. Called only after Render.
	ApplyRecord(rec sheet.Record) error
	// BindAutoSave installs the trigger fired by user edits. Binding is idempotent.
	BindAutoSave(fn func())
}

// Cue is a resolved species audio cue.
type Cue struct {
	SpeciesID int
	Source    string
}

// AudioLoader resolves the audio cue of a species.
type AudioLoader interface {
	Preload(ctx context.Context, speciesID int) (Cue, error)
}

// AudioPlayer plays a resolved cue.
type AudioPlayer interface {
	Play(cue Cue)
}

// NoticeKind classifies a user-visible notice.
type NoticeKind string

const (
	NoticeStorageFailure  NoticeKind = "storage_failure"
	NoticeDataUnavailable NoticeKind = "data_unavailable"
	NoticeStale           NoticeKind = "stale_selection"
	NoticeSaveFailed      NoticeKind = "save_failed"
	NoticeRenderFailed    NoticeKind = "render_failed"
)

// Notice is a user-visible message about a failed operation.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

// Notify calls f.
func (f NotifierFunc) Notify(n Notice) { f(n) }
