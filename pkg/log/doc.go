/*
Package log provides structured logging for mihoro using zerolog.

The package wraps a single global zerolog.Logger. Commands call Init once with
the level and format selected on the command line and then either log through
the package helpers or derive a component logger:

	log.Init(log.Config{Level: log.InfoLevel})
	logger := log.WithComponent("installer")
	logger.Info().Str("path", path).Msg("Applied overlay")

# Output

Console output (the default) is human readable and goes to stderr so that
commands which print shell snippets on stdout, such as "mihoro proxy export",
stay pipeable:

	3:04PM INF Downloaded config component=fetch path=/home/u/.config/mihomo/config.yaml

With JSONOutput set, every line is a JSON object instead.

# Log file

Runs triggered by cron have no terminal attached. Config.File tees every line
into a size-rotated file managed by lumberjack:

	closer := log.Init(log.Config{Level: log.InfoLevel, File: "/home/u/.cache/mihoro.log"})
	defer closer.Close()

WithRunID stamps all subsequent lines of the process with a random run_id so
consecutive scheduled runs can be told apart in that file.
*/
package log
