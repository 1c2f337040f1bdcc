package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrStringTooLong = errors.New("string is too long")

const (
	IDSize       = 4
	UsernameSize = 32
	EmailSize    = 255

	idOffset       = 0
	usernameOffset = idOffset + IDSize
	emailOffset    = usernameOffset + UsernameSize

	// RowSize は1行のエンコード後のバイト数
	RowSize = IDSize + UsernameSize + EmailSize
)

// Row is one fixed-width record.
type Row struct {
	ID       uint32
	Username [UsernameSize]byte
	Email    [EmailSize]byte
}

// NewRow builds a Row, zero-padding username and email.
// Values longer than their column capacity are rejected with ErrStringTooLong.
func NewRow(id uint32, username, email string) (Row, error) {
	var row Row
	if len(username) > UsernameSize {
		return row, fmt.Errorf("username is %d bytes, max %d: %w", len(username), UsernameSize, ErrStringTooLong)
	}
	if len(email) > EmailSize {
		return row, fmt.Errorf("email is %d bytes, max %d: %w", len(email), EmailSize, ErrStringTooLong)
	}
	row.ID = id
	copy(row.Username[:], username)
	copy(row.Email[:], email)
	return row, nil
}

// Encode serializes the row into exactly RowSize bytes.
func (r Row) Encode() []byte {
	buf := make([]byte, RowSize)
	// id はネイティブのバイトオーダーで書く
	binary.NativeEndian.PutUint32(buf[idOffset:usernameOffset], r.ID)
	copy(buf[usernameOffset:emailOffset], r.Username[:])
	copy(buf[emailOffset:RowSize], r.Email[:])
	return buf
}

// DecodeRow reads the row stored at buf[offset:offset+RowSize].
// The caller guarantees the range is in bounds.
func DecodeRow(buf []byte, offset int) Row {
	data := buf[offset : offset+RowSize]
	var row Row
	row.ID = binary.NativeEndian.Uint32(data[idOffset:usernameOffset])
	copy(row.Username[:], data[usernameOffset:emailOffset])
	copy(row.Email[:], data[emailOffset:RowSize])
	return row
}

// UsernameString returns the username without its zero padding.
func (r Row) UsernameString() string {
	return trimPadding(r.Username[:])
}

// EmailString returns the email without its zero padding.
func (r Row) EmailString() string {
	return trimPadding(r.Email[:])
}

func (r Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.UsernameString(), r.EmailString())
}

func trimPadding(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
