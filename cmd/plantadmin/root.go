package main

import (
	"github.com/plantlog/internal/config"
	"github.com/plantlog/internal/db"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// 全局参数
var (
	flagDatabase string
)

// 命令共享的运行时状态
var (
	appConfig config.AppConfig
	gdb       *gorm.DB
)

var rootCmd = &cobra.Command{
	Use:           "plantadmin",
	Short:         "Operator tool for the plant watering service",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		appConfig = config.Load()
		path := appConfig.DatabasePath
		if flagDatabase != "" {
			path = flagDatabase
		}

		opened, err := db.Open(path)
		if err != nil {
			return err
		}
		gdb = opened
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if gdb == nil {
			return nil
		}
		sqlDB, err := gdb.DB()
		gdb = nil
		if err != nil {
			return err
		}
		return sqlDB.Close()
	},
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "db", "", "SQLite database path (defaults to DATABASE_PATH)")

	rootCmd.AddCommand(initUserCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(probeCmd)
}
