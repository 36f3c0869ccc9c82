package media

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// Duration inspects a PCM WAV header and returns the clip length in
// seconds without decoding the audio payload.
func Duration(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	header := make([]byte, 12)
	if _, err := io.ReadFull(file, header); err != nil {
		return 0, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, errors.New("not a WAV file")
	}

	var (
		sampleRate    uint32
		bitsPerSample uint16
		channels      uint16
		dataSize      uint32
	)

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(file, chunkHeader[:]); err != nil {
			return 0, err
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(file, buf); err != nil {
				return 0, err
			}
			if len(buf) < 16 {
				return 0, errors.New("invalid fmt chunk")
			}
			channels = binary.LittleEndian.Uint16(buf[2:4])
			sampleRate = binary.LittleEndian.Uint32(buf[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
		case "data":
			dataSize = chunkSize
		default:
			skip := int64(chunkSize)
			if skip%2 == 1 {
				skip++
			}
			if _, err := file.Seek(skip, io.SeekCurrent); err != nil {
				return 0, err
			}
		}

		if chunkID == "data" {
			break
		}
	}

	if sampleRate == 0 || channels == 0 || bitsPerSample == 0 {
		return 0, errors.New("missing audio format information")
	}

	bytesPerSample := (bitsPerSample / 8) * channels
	if bytesPerSample == 0 {
		return 0, errors.New("invalid sample size")
	}
	return float64(dataSize) / float64(uint32(bytesPerSample)*sampleRate), nil
}
