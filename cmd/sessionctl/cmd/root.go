package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"go.pilab.hu/sessiond/config"
	"go.pilab.hu/sessiond/domain"
	"go.pilab.hu/sessiond/mongodb"
)

var (
	mongoURI    string
	mongoDBName string
)

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "sessionctl is a CLI tool to inspect and maintain session activity state",
	Long:  `A command-line interface for inspecting per-user activity records and running the inactivity sweep on demand.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// connect resolves configuration, connects to MongoDB and returns the
// activity repository the subcommands operate on.
func connect(ctx context.Context) (domain.ActivityRepository, *mongo.Database, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if mongoURI != "" {
		cfg.MongoURI = mongoURI
	}
	if mongoDBName != "" {
		cfg.MongoDBName = mongoDBName
	}

	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	db := mongodb.GetDB()

	repo, err := mongodb.NewActivityRepositoryMongo(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize activity repository: %w", err)
	}
	return repo, db, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI (overrides configuration)")
	rootCmd.PersistentFlags().StringVar(&mongoDBName, "mongo-db", "", "MongoDB database name (overrides configuration)")
}
