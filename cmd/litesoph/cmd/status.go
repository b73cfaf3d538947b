package cmd

import (
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/store/filestore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recorded state of every task in a project",
	Long: `List every task record in the project: lifecycle flags and the recorded
outcome of the most recent execution on each substrate.

Example:
  litesoph status --project ./water`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		projectDir, err := filepath.Abs(project)
		if err != nil {
			return err
		}

		st, err := filestore.New(projectDir)
		if err != nil {
			return err
		}
		recs, err := st.ListTasks()
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			cmd.Println("No tasks recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()
		w.Write([]byte("NAME\tENGINE\tTYPE\tDIRECTORY\tSTATE\tOUTCOME\n"))
		for _, rec := range recs {
			w.Write([]byte(rec.Name + "\t" + string(rec.Engine) + "\t" + string(rec.Type) + "\t" +
				rec.Directory + "\t" + stateString(rec) + "\t" + outcomeString(rec) + "\n"))
		}
		return nil
	},
}

func stateString(rec *store.TaskRecord) string {
	switch {
	case rec.State.InputSaved:
		return "input_saved"
	case rec.State.InputCreated:
		return "input_created"
	}
	return "created"
}

func outcomeString(rec *store.TaskRecord) string {
	switch {
	case rec.Succeeded():
		return "completed"
	case rec.Local != nil || rec.Network != nil:
		return "failed"
	}
	return "not run"
}

func init() {
	statusCmd.Flags().StringP("project", "p", ".", "Project directory")
	rootCmd.AddCommand(statusCmd)
}
