package discordgo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// LoadOpusPackets reads a DCA container: a sequence of little-endian int16
// frame lengths, each followed by that many bytes of opus data.
func LoadOpusPackets(r io.Reader) ([][]byte, error) {
	var packets [][]byte
	for {
		var frameLen int16
		if err := binary.Read(r, binary.LittleEndian, &frameLen); err != nil {
			if errors.Is(err, io.EOF) {
				return packets, nil
			}
			return nil, fmt.Errorf("read frame length: %w", err)
		}
		if frameLen <= 0 {
			return nil, fmt.Errorf("invalid frame length %d at packet %d", frameLen, len(packets))
		}

		packet := make([]byte, frameLen)
		if _, err := io.ReadFull(r, packet); err != nil {
			return nil, fmt.Errorf("read packet %d: %w", len(packets), err)
		}
		packets = append(packets, packet)
	}
}

// LoadOpusFile returns no packets and no error for an empty path.
func LoadOpusFile(path string) ([][]byte, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint
	return LoadOpusPackets(f)
}
