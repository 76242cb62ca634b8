package port

// KeyValue is the durable namespace backing the history store. Values are
// JSON documents. Implementations serialize access within the process;
// concurrent writers from other processes race with last-write-wins.
type KeyValue interface {
	// Get returns the value for key, or domain.ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Set overwrites the value for key in one durable write.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// UsedBytes reports the serialized size of the entire namespace,
	// including keys this store does not own.
	UsedBytes() (int64, error)
}
