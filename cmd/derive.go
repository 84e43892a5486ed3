package cmd

import (
	"fmt"
	"log"

	"github.com/retrato-app/retrato/internal/identity"
	"github.com/retrato-app/retrato/internal/sharelink"
	"github.com/spf13/cobra"
)

// deriveCmd 从原始证件号派生匿名身份，用于运维排查
var deriveCmd = &cobra.Command{
	Use:   "derive <raw-id>",
	Short: "Derive the anonymous owner identity from a raw identifier",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := identity.Derive(args[0])
		if err != nil {
			log.Fatalf("Failed to derive identity: %v", err)
		}

		fmt.Printf("owner_id:  %s\n", id.OwnerID)
		fmt.Printf("full_hash: %s\n", id.FullHash)

		if fileName, _ := cmd.Flags().GetString("file"); fileName != "" {
			fmt.Printf("token:     %s\n", sharelink.Encode(id.OwnerID, fileName))
		}
	},
}

func init() {
	deriveCmd.Flags().String("file", "", "also encode a share token for the given file name")
	rootCmd.AddCommand(deriveCmd)
}
