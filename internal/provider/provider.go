// Package provider wraps the external speech and language services behind
// narrow interfaces. The pipeline depends only on these interfaces; the
// HTTP implementations live alongside them.
package provider

import "context"

// Transcriber converts one complete utterance buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Generator streams a reply for one transcript. Fragments arrive on the
// first channel in order; their concatenation is the full reply. The error
// channel yields at most one error; both channels close when the stream
// ends.
type Generator interface {
	Stream(ctx context.Context, instruction, transcript string) (<-chan string, <-chan error)
}

// Synthesizer renders one text segment into a single audio buffer.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
