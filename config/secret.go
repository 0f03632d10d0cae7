package config

const redacted = "[REDACTED]"

// Secret is a configuration value that must not leak into logs, errors or
// responses. Every formatting path prints a placeholder; use Reveal to get
// the raw bytes.
type Secret string

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }

func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }

func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

func (s Secret) Reveal() []byte { return []byte(s) }

func (s Secret) IsSet() bool { return s != "" }
