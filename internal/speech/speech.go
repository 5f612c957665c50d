// Package speech holds the audio boundary of the agent: transcription of
// caller audio and synthesis of agent replies. Both providers fail soft at
// the call site; a failed synthesis still leaves the caller with reply text.
package speech

import "context"

// Transcript is the result of transcribing one utterance.
type Transcript struct {
	Text       string
	Confidence float64
}

// Transcriber converts one utterance of audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (Transcript, error)
}

// Synthesizer converts reply text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
