package transcribe

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Converter prepares an audio file for speech recognition, returning the
// path of the converted file.
type Converter interface {
	ToWav(ctx context.Context, audioPath string) (string, error)
}

// FFmpegConverter shells out to ffmpeg to produce 16 kHz mono PCM wav,
// the input format whisper-server expects.
type FFmpegConverter struct {
	// Bin overrides the ffmpeg binary name. Defaults to "ffmpeg".
	Bin string
}

func (c *FFmpegConverter) bin() string {
	if c.Bin != "" {
		return c.Bin
	}
	return "ffmpeg"
}

// ToWav converts the file next to its source, replacing the extension
// with .wav. A file already ending in .wav is returned unchanged.
func (c *FFmpegConverter) ToWav(ctx context.Context, audioPath string) (string, error) {
	if strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		return audioPath, nil
	}

	wavPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".wav"
	args := []string{
		"-y",
		"-i", audioPath,
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		wavPath,
	}

	cmd := exec.CommandContext(ctx, c.bin(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg convert %s: %w: %s", filepath.Base(audioPath), err, strings.TrimSpace(string(out)))
	}
	return wavPath, nil
}
