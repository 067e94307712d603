package endpoint

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		subscribe bool
		query     string
		want      string
	}{
		{
			name:      "bare_host",
			base:      "ws://localhost:5556",
			subscribe: true,
			query:     "true",
			want:      "ws://localhost:5556/index/?subscribe=true&query=true",
		},
		{
			name:      "replaces_last_path_segment_and_query",
			base:      "ws://h:1/a?x=1",
			subscribe: true,
			query:     "",
			want:      "ws://h:1/index/?subscribe=true&query=",
		},
		{
			name:      "keeps_directory_path",
			base:      "wss://h:1/riemann/",
			subscribe: false,
			query:     "host = nil",
			want:      "wss://h:1/riemann/index/?subscribe=false&query=host+%3D+nil",
		},
		{
			name:      "encodes_query_text",
			base:      "ws://h:1/",
			subscribe: true,
			query:     `service = "cpu" and metric > 0.5`,
			want:      "ws://h:1/index/?subscribe=true&query=service+%3D+%22cpu%22+and+metric+%3E+0.5",
		},
		{
			name:      "drops_fragment",
			base:      "ws://h:1/#frag",
			subscribe: true,
			query:     "true",
			want:      "ws://h:1/index/?subscribe=true&query=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := mustParse(t, tt.base)
			got := Build(base, tt.subscribe, tt.query)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.base, base.String(), "base must not be modified")
		})
	}
}

func TestBuild_QueryRoundTrip(t *testing.T) {
	query := `(service =~ "disk%" or tagged "io") & more`
	got := Build(mustParse(t, "ws://h:1"), true, query)

	values := got.Query()
	assert.Equal(t, "true", values.Get("subscribe"))
	assert.Equal(t, query, values.Get("query"))
}

func TestBaseOf(t *testing.T) {
	t.Run("strips_path_and_query", func(t *testing.T) {
		base, err := BaseOf(mustParse(t, "ws://h:1/index/?subscribe=true&query=x"))
		require.NoError(t, err)
		assert.Equal(t, "ws://h:1/", base.String())
	})

	t.Run("keeps_user_info", func(t *testing.T) {
		base, err := BaseOf(mustParse(t, "wss://ops:secret@h:443/a/b"))
		require.NoError(t, err)
		assert.Equal(t, "wss://ops:secret@h:443/", base.String())
	})

	t.Run("rejects_opaque_address", func(t *testing.T) {
		_, err := BaseOf(mustParse(t, "mailto:ops@example.com"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidBase))
	})

	t.Run("rejects_relative_address", func(t *testing.T) {
		_, err := BaseOf(mustParse(t, "index/"))
		assert.ErrorIs(t, err, ErrInvalidBase)
	})

	t.Run("rejects_nil", func(t *testing.T) {
		_, err := BaseOf(nil)
		assert.ErrorIs(t, err, ErrInvalidBase)
	})
}

func TestBaseOf_IgnoresSubscriptionParameters(t *testing.T) {
	bases := []string{
		"ws://localhost:5556",
		"ws://h:1/a?x=1",
		"wss://user@example.com:8443/deep/path/",
		"ws://[::1]:5556/",
	}
	queries := []string{"", "true", `service = "a"`, "état & ünïcode", "a=b&c=d"}

	for _, raw := range bases {
		base := mustParse(t, raw)
		reference, err := BaseOf(Build(base, true, queries[0]))
		require.NoError(t, err)

		for _, query := range queries[1:] {
			got, err := BaseOf(Build(base, true, query))
			require.NoError(t, err)
			assert.Equal(t, reference.String(), got.String(), "base %s query %q", raw, query)
		}
	}
}

func TestSameBase(t *testing.T) {
	a := Build(mustParse(t, "ws://h:1/a?x=1"), true, "one")
	b := Build(mustParse(t, "ws://h:1/"), true, "two")
	c := Build(mustParse(t, "ws://h:2/"), true, "one")

	assert.True(t, SameBase(a, b))
	assert.False(t, SameBase(a, c))
	assert.False(t, SameBase(a, mustParse(t, "mailto:x")))
	assert.False(t, SameBase(nil, a))
}

func TestEqual(t *testing.T) {
	base := mustParse(t, "ws://h:1")
	assert.True(t, Equal(Build(base, true, "q"), Build(base, true, "q")))
	assert.False(t, Equal(Build(base, true, "q"), Build(base, false, "q")))
	assert.False(t, Equal(Build(base, true, "q"), Build(base, true, "r")))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, base))
}

func TestParse(t *testing.T) {
	u, err := Parse("ws://localhost:5556")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5556", u.Host)

	_, err = Parse("localhost:5556/x")
	assert.ErrorIs(t, err, ErrInvalidBase)

	_, err = Parse("/relative")
	assert.ErrorIs(t, err, ErrInvalidBase)
}
