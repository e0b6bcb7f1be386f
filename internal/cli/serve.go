package cli

import "github.com/spf13/cobra"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Adscope server",
	Long:  `Start the Adscope HTTP server serving the dashboard, the insights API and the realtime socket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveDashboard(DashboardTemplate)
	},
}
