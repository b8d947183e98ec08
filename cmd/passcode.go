package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/credify/internal/auth"
	"github.com/spf13/cobra"
)

var passcodeCmd = &cobra.Command{
	Use:   "passcode",
	Short: "Manage the passcode that locks the API",
}

var passcodeCost int

var passcodeHashCmd = &cobra.Command{
	Use:   "hash [passcode]",
	Short: "Print the bcrypt hash to put in security.passcode_hash",
	Long:  `Print the bcrypt hash for a passcode. Without an argument the passcode is read from stdin.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var passcode string
		if len(args) == 1 {
			passcode = args[0]
		} else {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read passcode: %w", err)
			}
			passcode = strings.TrimRight(line, "\r\n")
		}

		hash, err := auth.HashPasscode(passcode, passcodeCost)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	passcodeHashCmd.Flags().IntVar(&passcodeCost, "cost", 0, "bcrypt cost (default 10)")

	passcodeCmd.AddCommand(passcodeHashCmd)
	rootCmd.AddCommand(passcodeCmd)
}
