package service

import "errors"

// Fatal configuration errors. These surface synchronously to the caller and
// never create job state.
var (
	ErrInputNotFound          = errors.New("input file does not exist")
	ErrTargetLanguageRequired = errors.New("target language is required")

	// ErrSourceChanged means a resumed job's input no longer produces the
	// chunk boundaries recorded in its checkpoint.
	ErrSourceChanged = errors.New("source file changed since checkpoint was written")

	// ErrNotResumable means the job is not in a state that can be resumed.
	ErrNotResumable = errors.New("job is not in a resumable state")
)
