package restfire

const (
	serverValueKey       = ".sv"
	serverValueTimestamp = "timestamp"
)

// ServerTimestamp returns a placeholder replaced by the server with its current time
// (milliseconds since the Unix epoch) when written.
func ServerTimestamp() map[string]string {
	return map[string]string{
		serverValueKey: serverValueTimestamp,
	}
}
