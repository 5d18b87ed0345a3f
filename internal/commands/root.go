package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/esxctl/esxctl/internal/config"
	"github.com/esxctl/esxctl/internal/logger"
	"github.com/esxctl/esxctl/internal/vsphere"
)

var (
	cfgFile string
	log     = logger.New()
)

// errConnection marks failures that happen before any operation runs:
// unusable configuration or a refused login.
var errConnection = errors.New("connection failed")

var rootCmd = &cobra.Command{
	Use:   "esxctl",
	Short: "Manage virtual machines on a single ESXi host",
	Long: `esxctl talks directly to one ESXi host: it creates, reconfigures and
destroys virtual machines, manages their disks, SCSI controllers and
snapshots, and imports OVF appliances from remote URLs.

Connection settings come from the config file, overridable through
ESXCTL_URL, ESXCTL_USERNAME, ESXCTL_PASSWORD and ESXCTL_INSECURE.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Errors are printed with targeted
// remediation hints; this is the only place that formats failures.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := remediation(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: user config dir)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(vmCmd)
	rootCmd.AddCommand(datastoreCmd)
	rootCmd.AddCommand(hostCmd)
}

func remediation(err error) string {
	switch {
	case errors.Is(err, vsphere.ErrNoSCSIController):
		return "add a controller first: esxctl vm controller add <vm>"
	case errors.Is(err, vsphere.ErrControllerAtCapacity):
		return "the controller is full; remove a disk first: esxctl vm disk remove <vm> <number>"
	case errors.Is(err, vsphere.ErrInvalidPowerState):
		return "power the VM off first: esxctl vm power-off <vm>"
	case errors.Is(err, errConnection):
		return "check the connection settings: esxctl config set --url <url> --username <user> --password <pwd>"
	}
	return ""
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadWithFile(cfgFile)
	}
	return config.Load()
}

// connect builds an authenticated client from the loaded configuration.
func connect(ctx context.Context) (*vsphere.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConnection, err)
	}
	client, err := vsphere.Connect(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConnection, err)
	}
	return client, nil
}

// printTable renders rows to stdout as a tab-aligned table.
func printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// requireBothOrNeither guards the declarative field/value filter pair.
func requireBothOrNeither(field, value string) error {
	if (field == "") != (value == "") {
		return fmt.Errorf("--field and --value need to be provided together")
	}
	return nil
}
