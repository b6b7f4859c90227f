package main

import (
	"github.com/plantlog/internal/service"
	"github.com/plantlog/internal/store"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the plant table is reachable within the configured timeouts",
	RunE:  runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	directory := service.NewPlantDirectory(store.NewPlantStore(gdb, nil), nil, service.DirectoryConfig{
		ProbeTimeout: appConfig.ProbeTimeout,
		ListTimeout:  appConfig.ListTimeout,
	})

	plants, err := directory.ProbedSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("ok: %d plants (probe %s, list %s)\n", len(plants), appConfig.ProbeTimeout, appConfig.ListTimeout)
	return nil
}
