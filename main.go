// wmbusmeters receives, decrypts, and decodes Wireless M-Bus telegrams
// from utility meters and prints their readings in human-readable,
// fields, or JSON form.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/edding3000/wmbusmeters/config"
	"github.com/edding3000/wmbusmeters/dongle"
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/logging"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/printer"
	"github.com/edding3000/wmbusmeters/serialmgr"
	"github.com/edding3000/wmbusmeters/telegram"
	"github.com/edding3000/wmbusmeters/wmerr"

	_ "github.com/edding3000/wmbusmeters/dongle/amb8465"
	_ "github.com/edding3000/wmbusmeters/dongle/im871a"
	_ "github.com/edding3000/wmbusmeters/dongle/rtlwmbus"
	_ "github.com/edding3000/wmbusmeters/dongle/simulator"
	_ "github.com/edding3000/wmbusmeters/meter/families"
)

const version = "1.0.0"

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfg := config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])
	config.EnvOverride(fs)

	if cfg.Version {
		fmt.Println("wmbusmeters", version)
		return
	}
	if cfg.License {
		fmt.Println("wmbusmeters is licensed under the GNU Affero General Public License v3 or later.")
		return
	}
	if cfg.Help {
		fs.Usage()
		return
	}
	if cfg.ShellEnvs {
		for _, name := range printer.EnvVarNames() {
			fmt.Println(name)
		}
		return
	}

	if err := cfg.ParsePositional(fs.Args()); err != nil {
		fatal(wmerr.Wrap(wmerr.ConfigInvalid, err, "parsing positional arguments"))
	}

	if cfg.UseConfig != "" {
		if err := config.LoadConfigDir(cfg.UseConfig, cfg); err != nil {
			fatal(wmerr.Wrap(wmerr.ConfigInvalid, err, "loading --useconfig directory"))
		}
	}

	if cfg.Device == "" {
		fatal(wmerr.New(wmerr.ConfigInvalid, "no DEVICE given; pass a device path/name or --useconfig"))
	}

	configureLogging(cfg)

	d, err := openDongle(cfg)
	if err != nil {
		fatal(err)
	}
	defer d.Close()

	logging.Noticef("wmbusmeters: opened %s on %s, link modes %s", d.Name(), cfg.Device, d.LinkModes().HR())

	out := os.Stdout
	var logf *os.File
	if cfg.LogFile != "" {
		logf, err = os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fatal(wmerr.Wrap(wmerr.ConfigInvalid, err, "opening --logfile"))
		}
		defer logf.Close()
	}

	p := printer.New(printer.Config{
		Format:           parseFormat(cfg.Format),
		Separator:        separatorRune(cfg.Separator),
		Out:              sinkWriter(logf, out),
		MeterFilesDir:    cfg.MeterFiles,
		MeterFilesAction: parseMeterFilesAction(cfg.MeterFilesAction),
	})

	mgr := serialmgr.New(d)
	mgr.OneShot(cfg.OneShot)
	if cfg.ExitAfter > 0 {
		mgr.ScheduleExitAfter(cfg.ExitAfter)
	}

	for _, ms := range cfg.Meters {
		info, err := buildMeterInfo(ms, cfg)
		if err != nil {
			fatal(err)
		}
		mtr, err := meter.New(info, d)
		if err != nil {
			fatal(wmerr.Wrap(wmerr.ConfigInvalid, err, "configuring meter "+ms.Name))
		}
		mtr.OnUpdate(onUpdateHandler(p, info))
		mgr.Register(mtr)

		logging.Verbosef("wmbusmeters: configured meter %s (%s), id %s", ms.Name, ms.Type, ms.ID)
	}

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt)
	go func() {
		<-sigint
		mgr.Stop()
	}()

	if err := mgr.Run(); err != nil {
		fatal(wmerr.Wrap(wmerr.DecodeFailed, err, "event loop"))
	}
}

func fatal(err error) {
	logging.Errorf("wmbusmeters: %v", err)
	os.Exit(1)
}

func configureLogging(cfg *config.Config) {
	sev := logging.Default
	switch {
	case cfg.Silent:
		sev = logging.Silent
	case cfg.Debug:
		sev = logging.Debug
	case cfg.Verbose:
		sev = logging.Verbose
	}
	logging.Configure(sev, nil)
	logging.EnableVerbose(cfg.Verbose || cfg.Debug)

	if cfg.Daemon {
		if err := logging.EnableSyslog("wmbusmeters"); err != nil {
			logging.Warningf("wmbusmeters: could not enable syslog: %v", err)
		}
	}
}

func openDongle(cfg *config.Config) (dongle.Dongle, error) {
	names := dongle.Names()
	if cfg.Device == "auto" {
		for _, name := range names {
			d, err := openNamed(name, cfg.Device, cfg)
			if err == nil {
				return d, nil
			}
			logging.Debugf("wmbusmeters: auto-detect: %s did not open: %v", name, err)
		}
		return nil, wmerr.New(wmerr.DeviceNotFound, "no dongle driver recognized a device to auto-detect against")
	}

	driverName, path := cfg.Device, cfg.Device
	if idx := strings.Index(cfg.Device, ":"); idx >= 0 {
		driverName, path = cfg.Device[:idx], cfg.Device[idx+1:]
	} else {
		driverName = names[0]
	}
	return openNamed(driverName, path, cfg)
}

func openNamed(name, path string, cfg *config.Config) (dongle.Dongle, error) {
	d, err := dongle.New(name)
	if err != nil {
		return nil, wmerr.Wrap(wmerr.ConfigInvalid, err, "selecting dongle driver")
	}
	if err := d.Open(path); err != nil {
		return nil, wmerr.Wrap(wmerr.DeviceNotFound, err, "opening "+path)
	}

	modes := cfg.ListenTo
	if modes.Empty() {
		modes = linkmode.Of(linkmode.T1, linkmode.C1)
	}
	if !dongle.SupportsSubset(d, modes) {
		d.Close()
		return nil, wmerr.New(wmerr.LinkModeUnsupported, "dongle %s does not support link modes %s simultaneously", name, modes.HR())
	}
	if err := d.SetLinkModes(modes); err != nil {
		d.Close()
		return nil, wmerr.Wrap(wmerr.LinkModeUnsupported, err, "setting link modes")
	}
	return d, nil
}

func buildMeterInfo(ms config.MeterSpec, cfg *config.Config) (meter.Info, error) {
	info := meter.Info{
		Name:        ms.Name,
		Family:      ms.Type,
		ID:          ms.ID,
		Shells:      cfg.Shell,
		Conversions: cfg.AddConversion,
	}
	if !ms.Modes.Empty() {
		info.ExpectedLinkModes = ms.Modes
	}
	if ms.Key != "" {
		key, err := hex.DecodeString(ms.Key)
		if err != nil {
			return info, wmerr.Wrap(wmerr.ConfigInvalid, err, "decoding key for meter "+ms.Name)
		}
		info.Key = key
	}
	return info, nil
}

func onUpdateHandler(p *printer.Printer, info meter.Info) meter.Subscriber {
	return func(_ *telegram.Telegram, m *meter.Meter) {
		if err := p.Emit(info, m.Family(), m.LastReading()); err != nil {
			logging.Warningf("wmbusmeters: printer: %v", err)
		}
	}
}

func parseFormat(s string) printer.Format {
	switch strings.ToLower(s) {
	case "json":
		return printer.FormatJSON
	case "fields":
		return printer.FormatFields
	default:
		return printer.FormatHR
	}
}

func parseMeterFilesAction(s string) printer.MeterFilesAction {
	if strings.ToLower(s) == "append" {
		return printer.Append
	}
	return printer.Overwrite
}

func separatorRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ';'
}

func sinkWriter(logf *os.File, out *os.File) *os.File {
	if logf != nil {
		return logf
	}
	return out
}
