package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momentics/levee/api"
	"github.com/momentics/levee/protocol"
)

func encodeCmd() *cobra.Command {
	var (
		opcode  string
		length  uint64
		maskHex string
		payload string
		fin     bool
		rsv     []int
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a frame header as hex",
		Long: `Encode a frame header using the minimal length encoding.

With --payload the payload is appended (masked when --mask is set) and
--len is ignored.

Examples:
  levee encode --opcode ping
  levee encode --opcode text --payload hello --mask 37fa213d
  levee encode --opcode bin --len 70000 --fin=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := parseOpcode(opcode)
			if err != nil {
				return err
			}
			n := length
			if cmd.Flags().Changed("payload") {
				n = uint64(len(payload))
			}
			f := protocol.NewFrame(op, fin, n)
			for _, bit := range rsv {
				switch bit {
				case 1:
					f.Rsv1 = true
				case 2:
					f.Rsv2 = true
				case 3:
					f.Rsv3 = true
				default:
					return fmt.Errorf("%w: rsv bit %d", api.ErrInvalidArgument, bit)
				}
			}
			if maskHex != "" {
				key, err := parseMask(maskHex)
				if err != nil {
					return err
				}
				f.SetMask(key)
			}

			out := make([]byte, f.HeaderLen(), f.HeaderLen()+len(payload))
			if _, err := protocol.EncodeFrame(out, &f); err != nil {
				return err
			}
			if cmd.Flags().Changed("payload") {
				body := make([]byte, len(payload))
				if f.Masked {
					protocol.Mask(body, []byte(payload), f.MaskKey)
				} else {
					copy(body, payload)
				}
				out = append(out, body...)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opcode, "opcode", "o", "text", "Opcode: cont, text, bin, close, ping, pong or a number")
	cmd.Flags().Uint64VarP(&length, "len", "l", 0, "Payload length")
	cmd.Flags().StringVarP(&maskHex, "mask", "m", "", "Mask key as 8 hex digits")
	cmd.Flags().StringVarP(&payload, "payload", "p", "", "Payload to append")
	cmd.Flags().BoolVar(&fin, "fin", true, "Set the FIN bit")
	cmd.Flags().IntSliceVar(&rsv, "rsv", nil, "Reserved bits to set (1, 2, 3)")

	return cmd
}

func parseOpcode(s string) (protocol.Opcode, error) {
	switch strings.ToLower(s) {
	case "cont", "continuation":
		return protocol.OpcodeContinuation, nil
	case "text":
		return protocol.OpcodeText, nil
	case "bin", "binary":
		return protocol.OpcodeBinary, nil
	case "close":
		return protocol.OpcodeClose, nil
	case "ping":
		return protocol.OpcodePing, nil
	case "pong":
		return protocol.OpcodePong, nil
	}
	v, err := strconv.ParseUint(s, 0, 4)
	if err != nil {
		return 0, fmt.Errorf("%w: opcode %q", api.ErrInvalidArgument, s)
	}
	return protocol.Opcode(v), nil
}

func parseMask(s string) ([4]byte, error) {
	var key [4]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 4 {
		return key, fmt.Errorf("%w: mask %q must be 8 hex digits", api.ErrInvalidArgument, s)
	}
	copy(key[:], b)
	return key, nil
}
