package main

import (
	"github.com/sirupsen/logrus"

	"github.com/mindhaven/backend/internal/config"
	"github.com/mindhaven/backend/internal/database"
)

func main() {
	config.Load()

	db := database.InitDatabase()
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("migration failed")
	}
}
