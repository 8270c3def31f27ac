package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/id-scanner/internal/config"
	"github.com/id-scanner/internal/idparser"
	"github.com/id-scanner/internal/logging"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/storage"
	"github.com/id-scanner/internal/types"
)

// recordCreator stores a new scan record
type recordCreator interface {
	Create(ctx context.Context, record *models.ScanRecord) error
}

// enroll parses raw and stores it as a reference record for later lookups
func enroll(ctx context.Context, store recordCreator, raw, userID, photoID string) (*models.ScanRecord, error) {
	parsed := idparser.Parse(raw, types.SourceManual)
	if !parsed.HasIDNumber() {
		return nil, fmt.Errorf("no ID number found in scan")
	}

	record := &models.ScanRecord{
		UserID:        userID,
		IDNumber:      *parsed.IDNumber,
		IDType:        parsed.IDType,
		FirstName:     parsed.FirstName,
		LastName:      parsed.LastName,
		MiddleInitial: parsed.MiddleInitial,
		Birthday:      parsed.Birthday,
	}
	if photoID != "" {
		record.PhotoID = &photoID
	}
	if err := store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func newEnrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll [text|-]",
		Short: "Parses a scan and stores it in the record database.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRaw(cmd, args)
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetString("user")
			photoID, _ := cmd.Flags().GetString("photo-id")

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			record, err := enroll(ctx, storage.NewScanRecordRepository(db), raw, userID, photoID)
			if err != nil {
				return err
			}
			logging.GetGlobalLogger().WithFields(map[string]interface{}{
				"id":     record.ID,
				"idType": record.IDType,
			}).Info("Record enrolled")
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", record.ID, record.IDNumber, record.IDType)
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "admin", "User recorded as the creator of the record")
	cmd.Flags().String("photo-id", "", "Storage key of the ID photo, if one was uploaded")
	return cmd
}
