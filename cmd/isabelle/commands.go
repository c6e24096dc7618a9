package main

import "github.com/spf13/cobra"

func commandsCmd() *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Manage the registered slash commands",
	}
	cmd.PersistentFlags().StringVar(&guildID, "guild", "",
		"register in this guild only instead of globally")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "deploy",
			Short: "Register the slash commands of every module",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				b, err := loadBot()
				if err != nil {
					return err
				}
				return b.DeployCommands(guildID)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every registered slash command",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				b, err := loadBot()
				if err != nil {
					return err
				}
				return b.ClearCommands(guildID)
			},
		},
	)

	return cmd
}
