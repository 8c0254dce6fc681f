package interfaces

// -----------------------------------------------------------------------------
// IObjectStore defines the binary upload boundary (video storage).
// -----------------------------------------------------------------------------

type IObjectStore interface {
	// Put stores data under key. Keys may contain '/' separators.
	Put(key string, data []byte, contentType string) error
}
