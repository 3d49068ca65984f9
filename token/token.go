// Package token implements the self-describing answer payload carried in
// inline-button callback data. The token is the only grading authority: it
// binds an option to its question, its correctness and the time it was
// presented, so an answer can be graded without looking the question up
// again, even across a process restart.
package token

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"time"
)

// AnswerToken is the decoded payload of one answer button.
type AnswerToken struct {
	QuestionID  int64
	OptionIndex int
	IsCorrect   bool
	PresentedAt time.Time
}

// ErrMalformedToken is returned for any payload that is not a structurally
// valid token: wrong length, unknown version or a checksum mismatch.
var ErrMalformedToken = errors.New("malformed answer token")

// Wire layout, all integers big-endian:
//
//	magic(1) version(1) questionID(8) optionIndex(2) isCorrect(1) presentedAtMillis(8) crc32(4)
//
// The CRC covers everything before it. 25 payload bytes encode to 34
// base64url characters, well under Telegram's 64-byte callback-data cap.
const (
	tokenMagic   = 0x51 // 'Q'
	tokenVersion = 0x01
	rawLen       = 1 + 1 + 8 + 2 + 1 + 8 + 4
)

var encoding = base64.RawURLEncoding

// Encode serializes the token into a transport-safe printable string.
func Encode(t AnswerToken) string {
	buf := make([]byte, rawLen)
	buf[0] = tokenMagic
	buf[1] = tokenVersion
	binary.BigEndian.PutUint64(buf[2:], uint64(t.QuestionID))
	binary.BigEndian.PutUint16(buf[10:], uint16(t.OptionIndex))
	if t.IsCorrect {
		buf[12] = 1
	}
	binary.BigEndian.PutUint64(buf[13:], uint64(t.PresentedAt.UnixMilli()))
	binary.BigEndian.PutUint32(buf[21:], crc32.ChecksumIEEE(buf[:21]))
	return encoding.EncodeToString(buf)
}

// Decode is the inverse of Encode. It is deliberately defensive: corrupted,
// truncated or foreign payloads must be rejected rather than misparsed,
// because the token is trusted for grading.
func Decode(data string) (AnswerToken, error) {
	raw, err := encoding.DecodeString(data)
	if err != nil {
		return AnswerToken{}, ErrMalformedToken
	}
	if len(raw) != rawLen {
		return AnswerToken{}, ErrMalformedToken
	}
	if raw[0] != tokenMagic || raw[1] != tokenVersion {
		return AnswerToken{}, ErrMalformedToken
	}
	if binary.BigEndian.Uint32(raw[21:]) != crc32.ChecksumIEEE(raw[:21]) {
		return AnswerToken{}, ErrMalformedToken
	}
	if raw[12] > 1 {
		return AnswerToken{}, ErrMalformedToken
	}

	return AnswerToken{
		QuestionID:  int64(binary.BigEndian.Uint64(raw[2:])),
		OptionIndex: int(binary.BigEndian.Uint16(raw[10:])),
		IsCorrect:   raw[12] == 1,
		PresentedAt: time.UnixMilli(int64(binary.BigEndian.Uint64(raw[13:]))),
	}, nil
}
