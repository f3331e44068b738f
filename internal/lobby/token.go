package lobby

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	tokenLength    = 10
	roomCodeLength = 6
	roomCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewToken returns a fresh spectator capability token.
func NewToken() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:tokenLength]
}

// NewRoomCode returns a random six character room code.
func NewRoomCode() string {
	var b strings.Builder
	for range roomCodeLength {
		b.WriteByte(roomCodeChars[randomIndex(len(roomCodeChars))])
	}
	return b.String()
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(n int) int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return int(i.Int64())
}

// Target names the room a spectator joins and the token it joins with.
type Target struct {
	RoomCode string
	Token    string
}

// WatchLink builds a shareable spectator link below base.
func WatchLink(base string, t Target) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("roomCode", t.RoomCode)
	q.Set("token", t.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ErrNotALink is returned when input carries no room code query parameter.
var ErrNotALink = errors.New("input is not a spectator link")

// ParseWatchLink extracts the room code and token from a spectator link.
// A link with a room code but no token yields an empty Token.
func ParseWatchLink(input string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return Target{}, err
	}
	q := u.Query()
	code := q.Get("roomCode")
	if code == "" {
		return Target{}, ErrNotALink
	}
	return Target{RoomCode: code, Token: q.Get("token")}, nil
}
