package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-cache-proxy/cache"
)

func newFingerprintCmd(flags *rootFlags) *cobra.Command {
	var serializer string

	cmd := &cobra.Command{
		Use:   "fingerprint SUBJECT OPERATION [ARG...]",
		Short: "Print the cache key of a call with string arguments",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			hash, err := cfg.HashFunc()
			if err != nil {
				return err
			}

			var s cache.KeySerializer
			switch serializer {
			case "default":
				s = cache.NewDefaultKeySerializer()
			case "msgpack":
				s = cache.NewMsgpackKeySerializer()
			default:
				return fmt.Errorf("unknown serializer %q", serializer)
			}

			callArgs := make([]any, 0, len(args)-2)
			for _, a := range args[2:] {
				callArgs = append(callArgs, a)
			}

			payload, err := s.SerializeKey(cache.NewCall(args[0], args[1], callArgs...))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash(payload))
			return nil
		},
	}

	cmd.Flags().StringVar(&serializer, "serializer", "default", "key serializer: default or msgpack")
	return cmd
}
