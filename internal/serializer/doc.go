// Package serializer turns arbitrary cache values into bytes and back. Stores
// treat the serializer as an opaque encode/decode pair: they never inspect
// the bytes beyond the expiry header they prepend themselves.
//
// Two implementations are provided:
//
//   - gob (default): preserves Go types for the basic kinds (int stays int,
//     string stays string). Custom types must be registered with Register.
//   - json: portable between languages; numbers decode as json.Number.
//
// All serializers are stateless and safe for concurrent use.
package serializer
