package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Navezjt/master-me/internal/audio"
)

// Command creates the command listing available capture devices.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := audio.ListCaptureDevices()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("no capture devices found")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%3d  %s\n", info.Index, info.Name)
			}
			return nil
		},
	}
}
