package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/coinbase-samples/fix-conformance-harness/wire"
)

func scanCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a FIX log and print its message and session distribution",
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			sc := wire.NewScanner(f, path, wire.Config{})
			sum, err := wire.Scan(sc)
			if err != nil {
				return err
			}

			fmt.Printf("messages: %d\n", sum.MessageCount)

			msgTypes := make([]string, 0, len(sum.MsgTypeDistribution))
			for mt := range sum.MsgTypeDistribution {
				msgTypes = append(msgTypes, mt)
			}
			sort.Strings(msgTypes)
			for _, mt := range msgTypes {
				fmt.Printf("  msgType %s: %d\n", mt, sum.MsgTypeDistribution[mt])
			}

			fmt.Printf("sessions: %d\n", len(sum.SessionsDetected))
			for sk := range sum.SessionsDetected {
				fmt.Printf("  %s\n", sk.ID())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "log", "", "path to the FIX log to scan")
	_ = cmd.MarkFlagRequired("log")

	return cmd
}
