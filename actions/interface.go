package actions

// DefaultsStore persists default flag values between runs.
type DefaultsStore interface {
	Get(key string, out interface{}) error
	Set(key string, val interface{}) error
	Delete(key string) error
	GetAllKeys() ([]string, error)
}
