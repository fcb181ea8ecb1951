// Package session owns the streaming state machines of keyscan.
//
// EnrollmentSession gates incoming frames, extracts feature vectors and
// accumulates them into a KeyTemplate. VerificationSession scores each
// evaluable frame against a template and smooths the per-frame verdicts
// into a confirmed match. Manager is the key-management context: it
// allows one active session at a time and hands completed templates to
// the TemplateStore.
//
// Frames for one session are processed strictly in arrival order; each
// processed frame yields exactly one event, returned to the caller and
// delivered synchronously to the registered handler. Session locks are
// released before the handler runs, so a handler may call Stop, Abort,
// Complete or any Manager method; it must not submit frames. Once Stop
// or Abort returns, no further frame is evaluated or emitted. A handler
// call already in flight on another goroutine finishes normally.
//
// Dependency rule: depends on pointcloud, features, matching, smoothing,
// keytemplate and keystore. No SQL is allowed in this package.
package session
