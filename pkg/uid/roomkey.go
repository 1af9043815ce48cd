package uid

import "crypto/rand"

// RoomKeyLength is the length of the human-shareable join code.
const RoomKeyLength = 6

// Digits and uppercase letters minus the lookalikes 0/O and 1/I.
const roomKeyAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateRoomKey returns a short shareable room code. Uniqueness among
// active rooms is the caller's job (retry on collision).
func GenerateRoomKey() string {
	bytes := make([]byte, RoomKeyLength)
	rand.Read(bytes)
	for i, b := range bytes {
		bytes[i] = roomKeyAlphabet[int(b)%len(roomKeyAlphabet)]
	}
	return string(bytes)
}
