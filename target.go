package rtmpcast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Protocol is the transport an RTMP target uses.
type Protocol int

const (
	ProtocolRTMP Protocol = iota
	ProtocolRTMPS
)

func (p Protocol) String() string {
	if p == ProtocolRTMPS {
		return "rtmps"
	}
	return "rtmp"
}

// DefaultRTMPPort is the port assumed when a target URL omits one.
const DefaultRTMPPort = 1935

// Target describes where to publish: the transport, host/port, the
// application name, an optional app instance path, a stream name, and
// any query string carried by the original URL.
type Target struct {
	Protocol    Protocol
	Host        string
	Port        int
	AppName     string
	AppInstance string
	StreamName  string
	Query       string
}

var (
	// ErrEmptyURL is returned for a blank or whitespace-only target URL.
	ErrEmptyURL = errors.New("rtmpcast: target url is empty")
	// ErrUnsupportedScheme is returned for any scheme other than rtmp/rtmps.
	ErrUnsupportedScheme = errors.New("rtmpcast: unsupported scheme, want rtmp or rtmps")
	// ErrUserInfoNotAllowed is returned when the URL carries a user:pass@ prefix.
	ErrUserInfoNotAllowed = errors.New("rtmpcast: user-info is not allowed in a target url")
	// ErrEmptyAppName is returned when the path has no app segment.
	ErrEmptyAppName = errors.New("rtmpcast: target url has no app name")
	// ErrMalformedHostPort is returned for a host[:port] that fails to parse.
	ErrMalformedHostPort = errors.New("rtmpcast: malformed host[:port]")
)

// ParseTarget parses a URL of the form
// scheme://host[:port]/app[/instance...][/stream][?query]. When
// includeStreamName is true, the final path segment is treated as the
// stream name; otherwise every extra segment is folded into AppInstance
// and StreamName is left empty for the caller to supply separately.
// Everything after the first '?' is kept verbatim in Query; path
// segments that follow it are not split into AppInstance or StreamName.
func ParseTarget(raw string, includeStreamName bool) (*Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	if strings.Contains(raw, "#") {
		return nil, fmt.Errorf("%w: fragments are not allowed", ErrUnsupportedScheme)
	}

	scheme, rest := splitScheme(raw)
	switch scheme {
	case "rtmp", "rtmps":
	default:
		return nil, ErrUnsupportedScheme
	}

	if !strings.HasPrefix(rest, "//") {
		return nil, fmt.Errorf("%w: missing authority", ErrMalformedHostPort)
	}
	rest = rest[2:]

	authority, path, query := splitAuthorityPathQuery(rest)
	if strings.Contains(authority, "@") {
		return nil, ErrUserInfoNotAllowed
	}

	host, port, err := splitHostPort(authority)
	if err != nil {
		return nil, err
	}

	segments := splitPathSegments(path)
	if len(segments) == 0 || segments[0] == "" {
		return nil, ErrEmptyAppName
	}

	t := &Target{
		Protocol: protocolFromScheme(scheme),
		Host:     host,
		Port:     port,
		AppName:  segments[0],
		Query:    query,
	}

	extra := segments[1:]
	if includeStreamName && len(extra) > 0 {
		t.StreamName = extra[len(extra)-1]
		extra = extra[:len(extra)-1]
	}
	t.AppInstance = strings.Join(extra, "/")

	return t, nil
}

// String renders the target back to a URL, omitting the port when it
// is the default 1935 unless forcePort is set.
func (t *Target) String(forcePort bool) string {
	var b strings.Builder
	b.WriteString(t.Protocol.String())
	b.WriteString("://")
	b.WriteString(t.Host)
	if forcePort || t.Port != DefaultRTMPPort {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(t.Port))
	}
	b.WriteString("/")
	b.WriteString(t.AppName)
	if t.AppInstance != "" {
		b.WriteString("/")
		b.WriteString(t.AppInstance)
	}
	if t.StreamName != "" {
		b.WriteString("/")
		b.WriteString(t.StreamName)
	}
	if t.Query != "" {
		b.WriteString("?")
		b.WriteString(t.Query)
	}
	return b.String()
}

// TcURL returns the connect command's tcUrl: the target minus the
// stream name (the app and its instance path only).
func (t *Target) TcURL() string {
	withoutStream := *t
	withoutStream.StreamName = ""
	return withoutStream.String(false)
}

func protocolFromScheme(scheme string) Protocol {
	if scheme == "rtmps" {
		return ProtocolRTMPS
	}
	return ProtocolRTMP
}

func splitScheme(raw string) (scheme, rest string) {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		// No scheme given: default to rtmp, per spec.
		return "rtmp", "//" + raw
	}
	return strings.ToLower(raw[:idx]), "//" + raw[idx+len("://"):]
}

func splitAuthorityPathQuery(rest string) (authority, path, query string) {
	pathStart := strings.IndexByte(rest, '/')
	if pathStart < 0 {
		authority = rest
		return authority, "", ""
	}
	authority = rest[:pathStart]
	remainder := rest[pathStart+1:]
	if qIdx := strings.IndexByte(remainder, '?'); qIdx >= 0 {
		path = remainder[:qIdx]
		query = remainder[qIdx+1:]
	} else {
		path = remainder
	}
	return authority, path, query
}

func splitHostPort(authority string) (host string, port int, err error) {
	if authority == "" {
		return "", 0, ErrMalformedHostPort
	}
	if idx := strings.LastIndexByte(authority, ':'); idx >= 0 {
		if strings.Count(authority, ":") > 1 {
			return "", 0, ErrMalformedHostPort
		}
		host = authority[:idx]
		portStr := authority[idx+1:]
		p, convErr := strconv.Atoi(portStr)
		if convErr != nil || p <= 0 || p > 65535 {
			return "", 0, ErrMalformedHostPort
		}
		return host, p, nil
	}
	return authority, DefaultRTMPPort, nil
}

func splitPathSegments(path string) []string {
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "/") {
		return nil // host//app: an empty first segment, which ParseTarget rejects as an empty app
	}
	parts := strings.Split(path, "/")
	return parts
}
