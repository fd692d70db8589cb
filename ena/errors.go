package ena

import (
	"fmt"
	"strings"
)

// ServerUnreachableError reports a connection timeout or refusal.
type ServerUnreachableError struct {
	URL string
	Err error
}

func (e *ServerUnreachableError) Error() string {
	return fmt.Sprintf("archive server unreachable at %s: %v", e.URL, e.Err)
}

func (e *ServerUnreachableError) Unwrap() error { return e.Err }

// ServerError reports a 5xx response from the archive.
type ServerError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("archive server error at %s: %s", e.URL, e.Status)
}

// RemoteAbsentError reports a record that does not exist on the archive.
type RemoteAbsentError struct {
	What string
	Key  string
}

func (e *RemoteAbsentError) Error() string {
	return fmt.Sprintf("no %s found on the archive for %q", e.What, e.Key)
}

// RemoteAmbiguousError reports multiple archive records where exactly one
// was required.
type RemoteAmbiguousError struct {
	What   string
	Key    string
	Values []string
}

func (e *RemoteAmbiguousError) Error() string {
	return fmt.Sprintf("multiple %s found for %q: %s", e.What, e.Key, strings.Join(e.Values, ", "))
}
