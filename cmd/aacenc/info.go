package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thesyncim/aacenc"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show encoder library status",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if !aacenc.IsAvailable() {
		fmt.Fprintln(out, "libvo-aacenc: not available")
		fmt.Fprintln(out, "set VOAACENC_LIB_PATH to the shared library")
		return nil
	}

	fmt.Fprintf(out, "libvo-aacenc: %s\n", aacenc.LibraryPath())
	for _, p := range aacenc.AudioEncoderProviders(aacenc.AudioCodecAAC) {
		fmt.Fprintf(out, "provider: %s (%s)\n", p, p.License())
	}

	def := aacenc.DefaultAudioEncoderConfig(aacenc.AudioCodecAAC)
	fmt.Fprintf(out, "defaults: %d Hz, %d channels, %d bps\n", def.SampleRate, def.Channels, def.BitrateBps)
	return nil
}
