/*
 * wideq
 * Copyright (C) 2026  wideq contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package common implements the wideq command line tool: argument
// parsing, the persisted-state lifecycle around every command, and the
// commands themselves.
package common

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/client"
	"github.com/sampsyo/wideq/lib/core"
	"github.com/sampsyo/wideq/lib/defaults"
	logutils "github.com/sampsyo/wideq/lib/utils/log"
)

var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentCLI)

const helpString = "Command-line client for LG SmartThinQ appliances."

// GlobalFlags are the flags that apply to every command.
type GlobalFlags struct {
	// Country is the account country code.
	Country string
	// Language is the account language code.
	Language string
	// StatePath locates the persisted state file.
	StatePath string
	// Debug enables debug logging.
	Debug bool
	// Verbose enables informational logging.
	Verbose bool
}

// Run parses the command line and executes the selected command. State is
// loaded before the command and saved after it, even on failure, so a
// token refreshed along the way is never lost.
func Run(args []string) error {
	var flags GlobalFlags
	app := kingpin.New("wideq", helpString)
	app.HelpFlag.Short('h')
	app.Flag("country", "Country code for the account, like US or KR.").
		Short('c').StringVar(&flags.Country)
	app.Flag("language", "Language code for the API, like en-US.").
		Short('l').StringVar(&flags.Language)
	app.Flag("state", "Path to the persisted state file.").
		Envar("WIDEQ_STATE").Default(defaults.StateFile).StringVar(&flags.StatePath)
	app.Flag("debug", "Enable debug logging to stderr.").
		Envar("WIDEQ_DEBUG").BoolVar(&flags.Debug)
	app.Flag("verbose", "Enable informational logging to stderr.").
		Short('v').BoolVar(&flags.Verbose)

	lsCmd := app.Command("ls", "List the registered devices.").Default()

	monCmd := app.Command("mon", "Monitor a device, printing status snapshots until interrupted.")
	monID := monCmd.Arg("device-id", "Device to monitor.").Required().String()

	setCmd := app.Command("set", "Set a control value on a device.")
	setID := setCmd.Arg("device-id", "Device to control.").Required().String()
	setKey := setCmd.Arg("key", "Control key, as named by the model schema.").Required().String()
	setValue := setCmd.Arg("value", "An enum label, an enum code, or a number.").Required().String()

	turnCmd := app.Command("turn", "Turn a device on or off.")
	turnID := turnCmd.Arg("device-id", "Device to control.").Required().String()
	turnState := turnCmd.Arg("state", "Either on or off.").Required().Enum("on", "off")

	tempCmd := app.Command("set-temp", "Set a device's target temperature.")
	tempID := tempCmd.Arg("device-id", "Device to control.").Required().String()
	tempValue := tempCmd.Arg("temp", "Target temperature, validated against the model schema.").Required().String()
	tempKey := tempCmd.Flag("key", "Control key carrying the target temperature.").
		Default("TempCfg").String()

	urlCmd := app.Command("url", "Print the browser login URL.")

	authCmd := app.Command("auth", "Finish the login flow with the callback URL the browser landed on.")
	authURL := authCmd.Arg("callback-url", "URL the login page redirected to.").Required().String()

	selected, err := app.Parse(args)
	if err != nil {
		return trace.Wrap(err)
	}

	logutils.Init(flags.Debug)
	if !flags.Debug && !flags.Verbose {
		logutils.SetLevel(slog.LevelWarn)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := client.NewFSStateStore(flags.StatePath)
	state, err := store.Load()
	if err != nil {
		return trace.Wrap(err)
	}
	clt, err := client.Load(client.Config{
		Country:  flags.Country,
		Language: flags.Language,
	}, state)
	if err != nil {
		return trace.Wrap(err)
	}

	// url and auth are themselves part of the login flow; everything
	// else needs credentials first.
	if selected != urlCmd.FullCommand() && selected != authCmd.FullCommand() && !clt.Authenticated() {
		if err := authenticate(ctx, clt); err != nil {
			return trace.Wrap(err)
		}
	}

	run := func() error {
		switch selected {
		case lsCmd.FullCommand():
			return onList(ctx, clt)
		case monCmd.FullCommand():
			return onMonitor(ctx, clt, *monID)
		case setCmd.FullCommand():
			return onSet(ctx, clt, *setID, *setKey, *setValue)
		case turnCmd.FullCommand():
			return onTurn(ctx, clt, *turnID, *turnState)
		case tempCmd.FullCommand():
			return onSetTemp(ctx, clt, *tempID, *tempKey, *tempValue)
		case urlCmd.FullCommand():
			return onLoginURL(ctx, clt)
		case authCmd.FullCommand():
			return onAuth(ctx, clt, *authURL)
		}
		return trace.NotFound("unknown command %v", selected)
	}

	runErr := run()
	if core.IsNotLoggedIn(runErr) {
		log.Info("Session expired, refreshing the access token")
		if err := clt.Refresh(ctx); err != nil {
			runErr = trace.Wrap(err)
		} else {
			runErr = run()
		}
	}

	if err := store.Save(clt.Dump()); err != nil {
		log.Warn("Failed to save state", "path", flags.StatePath, "error", err)
	}
	return trace.Wrap(runErr)
}

// authenticate walks the user through the browser login flow on the
// terminal.
func authenticate(ctx context.Context, clt *client.Client) error {
	gw, err := clt.Gateway(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	fmt.Println("Log in here:")
	fmt.Println(gw.OAuthURL())
	fmt.Println("Then paste the URL where the browser is redirected:")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(clt.AuthFromCallbackURL(ctx, strings.TrimSpace(line)))
}
