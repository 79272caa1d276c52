package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/openlearn/learning-management/internal/auth"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Initialize an empty database",
	Long:  `Install the permission catalog, the superuser group and the first superuser account. Safe to run repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := initGorm(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		for _, p := range auth.PermissionCatalog {
			var exists int
			row := db.Raw("SELECT 1 FROM permissions WHERE codename = ?", p.Codename).Row()
			if err := row.Scan(&exists); err == nil {
				continue
			}
			if err := db.Exec(
				"INSERT INTO permissions (name, codename, flag, description) VALUES (?, ?, ?, ?)",
				p.Name, p.Codename, p.Flag, p.Description).Error; err != nil {
				log.Fatalf("failed to insert permission %s: %v", p.Codename, err)
			}
			fmt.Println("Seeded permission:", p.Codename)
		}

		groupName := cfg.Bootstrap.SuperuserGroupName
		groupAbbrev := cfg.Bootstrap.SuperuserGroupAbbrev
		var groupID int64
		if err := db.Raw("SELECT group_id FROM groups WHERE name = ?", groupName).Row().Scan(&groupID); err != nil {
			if err := db.Exec(
				"INSERT INTO groups (name, abbreviation, description) VALUES (?, ?, ?)",
				groupName, groupAbbrev, "Group for the administrators of the application").Error; err != nil {
				log.Fatalf("failed to insert superuser group: %v", err)
			}
			if err := db.Raw("SELECT group_id FROM groups WHERE name = ?", groupName).Row().Scan(&groupID); err != nil {
				log.Fatalf("superuser group not found after insert: %v", err)
			}
			fmt.Println("Seeded superuser group:", groupName)
		}

		username := cfg.Bootstrap.FirstSuperuser
		var exists int
		if err := db.Raw("SELECT 1 FROM users WHERE username = ?", username).Row().Scan(&exists); err == nil {
			fmt.Println("first superuser already exists:", username)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Bootstrap.FirstSuperuserPass), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash superuser password: %v", err)
		}

		if err := db.Exec(
			"INSERT INTO users (username, fullname, password_hash, is_active, is_staff, is_superuser, registered_at, group_id) VALUES (?, ?, ?, true, true, true, now(), ?)",
			username, "Administrator", string(hash), groupID).Error; err != nil {
			log.Fatalf("failed to insert first superuser: %v", err)
		}
		fmt.Println("Seeded first superuser:", username)
	},
}
