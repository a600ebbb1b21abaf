package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "callsight"}

	root.AddCommand(serveCMD(), migrateCMD(), syncCMD())
	_ = root.Execute()
}
