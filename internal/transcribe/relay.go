package transcribe

import (
	"context"
	"strings"
	"sync"

	"github.com/goutham-m7/VerbaFlow/internal/translation"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// UpstreamConn is the streaming recognition connection the relay bridges to
type UpstreamConn interface {
	SendAudio(chunk []byte) error
	CloseStream() error
	Receive() (*LiveEvent, error)
	Close() error
}

// ResultSink receives forwarded recognition events, in upstream order
type ResultSink interface {
	SendResult(event *LiveEvent, result *LiveResult) error
}

// Relay bridges one client's audio-chunk sequence to the upstream recognition
// service and relays recognition events back, augmented with language
// detection. It is owned by a single connection handler and never shared.
type Relay struct {
	upstream UpstreamConn
	detector translation.Detector
	logger   *logger.Logger
}

// NewRelay creates a relay over an established upstream connection
func NewRelay(upstream UpstreamConn, detector translation.Detector, log *logger.Logger) *Relay {
	return &Relay{
		upstream: upstream,
		detector: detector,
		logger:   log,
	}
}

// Run drives the bridge until the upstream connection closes or ctx is
// cancelled. The sender subtask forwards audio chunks in order and signals
// end-of-audio when the channel closes; the receiver loop (this goroutine)
// forwards usable recognition events to the sink in exactly upstream order.
// Run waits for the sender to finish before returning. The returned error is
// non-nil only for an unrecoverable upstream failure.
func (r *Relay) Run(ctx context.Context, audio <-chan []byte, sink ResultSink) error {
	// Closed when the receive loop ends, so the sender stops waiting for
	// audio that has nowhere to go.
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.sendAudio(ctx, audio, done)
	}()

	// Unblock the receive loop when the caller cancels; Close is idempotent.
	go func() {
		select {
		case <-ctx.Done():
			r.upstream.Close()
		case <-done:
		}
	}()

	runErr := r.receiveEvents(ctx, sink)
	close(done)

	// Closing the upstream connection also unblocks a sender stuck writing.
	r.upstream.Close()
	wg.Wait()
	return runErr
}

func (r *Relay) sendAudio(ctx context.Context, audio <-chan []byte, stop <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case chunk, ok := <-audio:
			if !ok {
				// Input sequence ended; tell upstream no more audio is coming.
				if err := r.upstream.CloseStream(); err != nil {
					r.logger.Debug("Failed to send end-of-audio terminator", Error(err))
				}
				return
			}
			if err := r.upstream.SendAudio(chunk); err != nil {
				r.logger.Error("Error forwarding audio chunk upstream", Error(err))
				return
			}
		}
	}
}

func (r *Relay) receiveEvents(ctx context.Context, sink ResultSink) error {
	for {
		event, err := r.upstream.Receive()
		if err != nil {
			if ctx.Err() != nil {
				// Shutdown path; the closure is expected.
				return nil
			}
			return err
		}

		transcript := event.Transcript()
		if transcript == "" {
			// Interim silence markers and control events are dropped.
			continue
		}

		result := &LiveResult{Result: event.Raw}

		// Detection runs in-line on this goroutine so augmentation can never
		// reorder events. A detection failure leaves the fields null; the
		// event is still delivered.
		if strings.TrimSpace(transcript) != "" {
			if det, err := r.detector.DetectLanguage(ctx, transcript); err != nil {
				r.logger.Warn("Language detection failed", Error(err))
			} else {
				result.DetectedLanguage = &det.Language
				result.DetectionConfidence = &det.Confidence
			}
		}

		if err := sink.SendResult(event, result); err != nil {
			// The client side is gone; not an upstream fault.
			r.logger.Debug("Stopping relay, client sink closed", Error(err))
			return nil
		}
	}
}
