package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/Alia5/PadBridge/apiclient"
	"github.com/Alia5/PadBridge/internal/configpaths"
)

// stdout is where ctl prints responses.
var stdout io.Writer = os.Stdout

// Ctl talks to a running server's management API.
type Ctl struct {
	Addr     string        `help:"PadBridge API address" default:"127.0.0.1:3250" env:"PADBRIDGE_CTL_ADDR"`
	Password string        `help:"API password (read from the key file when empty)" env:"PADBRIDGE_CTL_PASSWORD"`
	KeyFile  string        `help:"API password file (defaults to padbridge.key.txt in the config directory)" env:"PADBRIDGE_KEY_FILE"`
	Timeout  time.Duration `help:"Request timeout" default:"5s" env:"PADBRIDGE_CTL_TIMEOUT"`

	Ping        CtlPing        `cmd:"" help:"Check that the server is up"`
	Controllers CtlControllers `cmd:"" help:"List connected controllers"`
	Kick        CtlKick        `cmd:"" help:"Disconnect a controller"`
	Sessions    CtlSessions    `cmd:"" help:"List sessions"`
	Sweep       CtlSweep       `cmd:"" help:"Remove idle sessions now"`
	State       CtlState       `cmd:"" help:"Show the virtual gamepad state"`
	Release     CtlRelease     `cmd:"" help:"Release every held button"`
}

// AfterApply binds the API client for the selected subcommand.
func (c *Ctl) AfterApply(kctx *kong.Context) error {
	kctx.Bind(c.client())
	return nil
}

func (c *Ctl) client() *apiclient.Client {
	pwd := c.Password
	if pwd == "" {
		pwd = readKeyFile(c.KeyFile)
	}
	return apiclient.NewWithConfig(c.Addr, &apiclient.Config{
		DialTimeout:  c.Timeout,
		ReadTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
		Password:     pwd,
	})
}

// readKeyFile returns the password from path, or from the default key file
// when path is empty. A missing file means no password.
func readKeyFile(path string) string {
	if path == "" {
		dir, err := configpaths.DefaultConfigDir()
		if err != nil {
			return ""
		}
		path = filepath.Join(dir, keyFileName)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(b))
	return err
}

type CtlPing struct{}

func (c *CtlPing) Run(client *apiclient.Client) error {
	resp, err := client.Ping()
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlControllers struct{}

func (c *CtlControllers) Run(client *apiclient.Client) error {
	resp, err := client.ControllersList()
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlKick struct {
	ID string `arg:"" help:"Controller id"`
}

func (c *CtlKick) Run(client *apiclient.Client) error {
	resp, err := client.ControllerKick(c.ID)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlSessions struct{}

func (c *CtlSessions) Run(client *apiclient.Client) error {
	resp, err := client.SessionsList()
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlSweep struct {
	Timeout time.Duration `arg:"" optional:"" help:"Idle time to sweep (server default when omitted)"`
}

func (c *CtlSweep) Run(client *apiclient.Client) error {
	resp, err := client.SessionsSweep(c.Timeout)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlState struct{}

func (c *CtlState) Run(client *apiclient.Client) error {
	resp, err := client.DeviceState()
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type CtlRelease struct{}

func (c *CtlRelease) Run(client *apiclient.Client) error {
	resp, err := client.DeviceRelease()
	if err != nil {
		return err
	}
	return printJSON(resp)
}
