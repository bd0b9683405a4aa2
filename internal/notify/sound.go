package notify

import (
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rewired-gh/iskwatch/internal/logger"
)

// BellPlayer rings the terminal bell on w.
type BellPlayer struct {
	W io.Writer
}

// Play writes a BEL byte unless volume is zero.
func (b BellPlayer) Play(volume float64) error {
	if volume <= 0 {
		return nil
	}
	_, err := b.W.Write([]byte{'\a'})
	return err
}

// CommandPlayer runs an external command per alert, for example
// ["paplay", "--volume={volume_pa}", "/usr/share/sounds/alert.oga"].
//
// Placeholders: {volume} is the fraction with two decimals, {percent} is 0 to
// 100 and {volume_pa} is PulseAudio's 0 to 65536 scale.
type CommandPlayer struct {
	Argv []string
}

// Play starts the command and returns without waiting for it to finish.
func (c CommandPlayer) Play(volume float64) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("empty sound command")
	}
	volume = math.Max(0, math.Min(1, volume))
	r := strings.NewReplacer(
		"{volume}", strconv.FormatFloat(volume, 'f', 2, 64),
		"{percent}", strconv.Itoa(int(math.Round(volume*100))),
		"{volume_pa}", strconv.Itoa(int(math.Round(volume*65536))),
	)
	args := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		args[i] = r.Replace(a)
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start sound command: %w", err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("Sound command exited: %v", err)
		}
	}()
	return nil
}
