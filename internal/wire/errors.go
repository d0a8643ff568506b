package wire

import "errors"

// ErrUnknownVariant is returned when a message envelope's single key does
// not name any variant of the target union type.
var ErrUnknownVariant = errors.New("wire: unknown message variant")

// ErrMalformedEnvelope is returned when a message body is not a
// single-key JSON object.
var ErrMalformedEnvelope = errors.New("wire: malformed message envelope")
