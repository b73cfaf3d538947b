package cmd

import (
	"fmt"
	"net/http"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ash399/litesoph/internal/config"
	"github.com/ash399/litesoph/internal/logger"
	"github.com/ash399/litesoph/internal/observability"
	"github.com/ash399/litesoph/internal/pipeline"
	"github.com/ash399/litesoph/internal/store/filestore"
	"github.com/ash399/litesoph/internal/submit"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pipeline manifest stage by stage",
	Long: `Run every stage of a pipeline manifest in order. Simulation stages are
submitted to the local machine (blocking) or to the configured remote host
(detached, observed by polling for the completion sentinel); analysis
stages run in process over their predecessors' outputs.

Example:
  litesoph run --project ./water --manifest pipeline.yaml --processes 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		project, _ := flags.GetString("project")
		manifestPath, _ := flags.GetString("manifest")
		remote, _ := flags.GetBool("remote")
		processes, _ := flags.GetInt("processes")
		queueCommand, _ := flags.GetString("queue-command")
		metricsAddr, _ := flags.GetString("metrics-addr")

		// viper layers the config file under the LITESOPH_* variables,
		// so both surfaces feed the same loader.
		cfg, err := config.LoadFrom(viper.GetString)
		if err != nil {
			return err
		}
		projectDir, err := filepath.Abs(project)
		if err != nil {
			return err
		}

		log := logger.New()
		st, err := filestore.New(projectDir)
		if err != nil {
			return err
		}

		manifest, err := pipeline.LoadManifest(manifestPath)
		if err != nil {
			return err
		}

		if metricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", observability.Handler())
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					log.Error("metrics server stopped", "error", err)
				}
			}()
		}

		local := submit.NewLocal(cfg.Shell, log)
		local.QueueCommand = queueCommand

		var remoteSub *submit.Remote
		if remote {
			if !cfg.Remote.Configured() {
				return fmt.Errorf("--remote requires LITESOPH_REMOTE_HOST to be set")
			}
			sess, err := submit.DialSSH(cfg.Remote)
			if err != nil {
				return err
			}
			defer sess.Close()
			base := path.Join(cfg.Remote.BasePath, filepath.Base(projectDir))
			remoteSub = submit.NewRemote(sess, base, projectDir, log)
		}

		mgr := pipeline.NewManager(cfg, st, projectDir, log)
		runner := pipeline.NewRunner(mgr, st, local, remoteSub, log)

		ctx := cmd.Context()
		for _, stage := range manifest.Stages {
			engine := stage.EngineName(manifest)
			t, err := mgr.NewTask(stage.Name, engine, stage.TaskType(), stage.Params, stage.DependsOn)
			if err != nil {
				return fmt.Errorf("stage %q: %w", stage.Name, err)
			}

			np := stage.Processes
			if np <= 0 {
				np = processes
			}
			if err := runner.RunStage(ctx, t, np); err != nil {
				return fmt.Errorf("stage %q: %w", stage.Name, err)
			}
			if remoteSub != nil && !t.Record().Type.PostProcessing() {
				if err := runner.FinishRemote(ctx, t); err != nil {
					return fmt.Errorf("stage %q: %w", stage.Name, err)
				}
			}

			rec := t.Record()
			if !rec.Succeeded() {
				code := -1
				if rec.Local != nil {
					code = rec.Local.ReturnCode
				}
				return fmt.Errorf("stage %q failed with return code %d", stage.Name, code)
			}
			cmd.Printf("✓ stage %s completed (%s/%s)\n", stage.Name, engine, stage.Type)
		}
		return nil
	},
}

func init() {
	flags := runCmd.Flags()
	flags.StringP("project", "p", ".", "Project directory")
	flags.StringP("manifest", "m", "pipeline.yaml", "Pipeline manifest file")
	flags.Bool("remote", false, "Submit simulation stages to the configured remote host")
	flags.Int("processes", 1, "Default parallel process count for simulation stages")
	flags.String("queue-command", "", "Local queue-submission command (default: run via the shell)")
	flags.String("metrics-addr", "", "Serve prometheus metrics on this address (optional)")

	rootCmd.AddCommand(runCmd)
}
