package config

import (
	"os"
	"strings"
	"time"

	"github.com/rprtr258/fun"
	"github.com/rprtr258/scuf"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

func formatLevel(i any) string {
	s, _ := i.(string)
	bg := fun.Switch(s, scuf.BgRed).
		Case(scuf.BgBlue, zerolog.LevelInfoValue).
		Case(scuf.BgGreen, zerolog.LevelWarnValue).
		Case(scuf.BgYellow, zerolog.LevelErrorValue).
		End()

	return scuf.String(" "+strings.ToUpper(s)+" ", bg, scuf.FgBlack)
}

func formatTimestamp(i any) string {
	s, _ := i.(string)
	t, err := time.Parse(zerolog.TimeFieldFormat, s)
	if err != nil {
		return s
	}

	return scuf.String(t.Format("[15:04:05]"), scuf.ModFaint, scuf.FgWhite)
}

// SetupLogger points global logger to out. Terminals get coloured console
// output, anything else gets JSON lines.
func SetupLogger(out *os.File, verbose bool) {
	level := fun.IF(verbose, zerolog.DebugLevel, zerolog.InfoLevel)

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
	if term.IsTerminal(int(out.Fd())) {
		logger = logger.Output(zerolog.ConsoleWriter{ //nolint:exhaustruct // not needed
			Out:             out,
			FormatLevel:     formatLevel,
			FormatTimestamp: formatTimestamp,
		})
	}

	log.Logger = logger
}
