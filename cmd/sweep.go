package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/services"
)

var sweepReminders bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue booking requests once and exit",
	Long: `Sweep runs the request-expiry job a single time. Useful when the
scheduler inside serve is disabled or for catching up after downtime.

Use --reminders to also send due booking reminders.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().BoolVar(&sweepReminders, "reminders", false, "Also send reminders for bookings starting in about an hour")
}

func runSweep(cmd *cobra.Command, args []string) error {
	_, flush, err := bootstrap()
	if err != nil {
		return err
	}
	defer flush()

	now := time.Now().UTC()
	expired, err := services.ExpireBookingRequests(db.GetDB(), now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Expired %d booking request(s)\n", expired)

	if sweepReminders {
		sent, err := services.SendBookingReminders(db.GetDB(), now)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d booking reminder(s)\n", sent)
	}
	return nil
}
