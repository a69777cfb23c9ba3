package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momentics/levee/api"
	"github.com/momentics/levee/protocol"
)

func scanCmd() *cobra.Command {
	var (
		validate bool
		client   bool
	)

	cmd := &cobra.Command{
		Use:   "scan HEX [HEX...]",
		Short: "Decode frame headers from hex",
		Long: `Feed hex bytes to the frame scanner. Each argument is one chunk, so
a header split across arguments shows how scanning resumes. Payload bytes
after a header are skipped; the next header is scanned after them.

Examples:
  levee scan 8900
  levee scan 81 7e01 00 --validate`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := protocol.DefaultPolicy()
			if client {
				policy.Role = protocol.RoleClient
			}
			out := cmd.OutOrStdout()
			s := protocol.NewScanner()
			var skip uint64
			frames := 0
			for i, arg := range args {
				chunk, err := hex.DecodeString(strings.ReplaceAll(arg, " ", ""))
				if err != nil {
					return fmt.Errorf("%w: chunk %d: %v", api.ErrInvalidArgument, i, err)
				}
				for len(chunk) > 0 {
					if skip > 0 {
						k := skip
						if uint64(len(chunk)) < k {
							k = uint64(len(chunk))
						}
						chunk, skip = chunk[k:], skip-k
						continue
					}
					n, done := s.Scan(chunk)
					chunk = chunk[n:]
					if !done {
						fmt.Fprintf(out, "chunk %d: header incomplete, state %s\n", i, s.State())
						break
					}
					frames++
					f := s.Frame
					printFrame(out, frames, &f)
					if validate {
						if err := protocol.Validate(&f, policy); err != nil {
							fmt.Fprintf(out, "  invalid: %v (close %d %s)\n", err, protocol.StatusFor(err), protocol.StatusFor(err))
						} else {
							fmt.Fprintln(out, "  valid")
						}
					}
					skip = f.Length()
				}
			}
			if s.State() != protocol.StateNone {
				return fmt.Errorf("input ended inside a header (state %s)", s.State())
			}
			if frames == 0 {
				return fmt.Errorf("no frame header found")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Check each header against the receiving endpoint's policy")
	cmd.Flags().BoolVar(&client, "client", false, "Validate as a client (server frames must be unmasked)")

	return cmd
}

func printFrame(w io.Writer, i int, f *protocol.Frame) {
	fmt.Fprintf(w, "frame %d: fin=%t rsv=%t,%t,%t opcode=%s len=%d (%s)",
		i, f.Fin, f.Rsv1, f.Rsv2, f.Rsv3, f.Opcode, f.Length(), f.PayloadLen.Type)
	if f.Masked {
		fmt.Fprintf(w, " mask=%s", hex.EncodeToString(f.MaskKey[:]))
	}
	fmt.Fprintln(w)
}
