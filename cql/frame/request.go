package frame

// Request is anything that can be encoded as a CQL v4 request frame body.
// The stream id is not part of a Request: it's assigned by the reporter
// when a payload is handed to a connection, by patching bytes [2:4) of the
// already-encoded frame (see SetStream).
type Request interface {
	OpCode() OpCode
	WriteBody(w *Writer)
}

// StartupOptions are the key/value pairs sent in a STARTUP request.
type StartupOptions map[string]string

// Startup is the STARTUP request that begins the protocol handshake.
type Startup struct {
	Options StartupOptions
}

func (Startup) OpCode() OpCode { return OpStartup }

func (s Startup) WriteBody(w *Writer) {
	w.WriteStringMap(s.Options)
}

// Options is the OPTIONS request, asking the server which startup options
// it supports.
type Options struct{}

func (Options) OpCode() OpCode    { return OpOptions }
func (Options) WriteBody(*Writer) {}

// AuthResponse carries one SASL challenge response.
type AuthResponse struct {
	Token []byte
}

func (AuthResponse) OpCode() OpCode { return OpAuthResponse }

func (a AuthResponse) WriteBody(w *Writer) {
	w.WriteBytes(a.Token)
}

// Register subscribes the connection to the named server events
// ("TOPOLOGY_CHANGE", "STATUS_CHANGE", "SCHEMA_CHANGE").
type Register struct {
	Events []string
}

func (Register) OpCode() OpCode { return OpRegister }

func (r Register) WriteBody(w *Writer) {
	w.WriteStringList(r.Events)
}

// Prepare requests that the server parse and cache a statement, returning a
// PreparedId the client can later reference with Execute.
type Prepare struct {
	Statement string
}

func (Prepare) OpCode() OpCode { return OpPrepare }

func (p Prepare) WriteBody(w *Writer) {
	w.WriteLongString(p.Statement)
}

// AllowAllAuthResponse is the AUTH_RESPONSE payload for a server configured
// with AllowAllAuthenticator: a [bytes] token holding a single zero byte.
func AllowAllAuthResponse() AuthResponse {
	return AuthResponse{Token: []byte{0}}
}

// PasswordAuthResponse builds the AUTH_RESPONSE payload expected by
// Cassandra's PasswordAuthenticator: a null byte, the username, a null
// byte, then the password.
func PasswordAuthResponse(user, pass string) AuthResponse {
	buf := make([]byte, 0, len(user)+len(pass)+2)
	buf = append(buf, 0)
	buf = append(buf, user...)
	buf = append(buf, 0)
	buf = append(buf, pass...)
	return AuthResponse{Token: buf}
}
