package main

import (
	"errors"
	"fmt"

	"github.com/plantlog/internal/db"
	"github.com/plantlog/internal/service"
	"github.com/plantlog/internal/store"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var flagOwnerEmail string

var samplePlants = []service.PlantInput{
	{
		Name: "绿萝", CommonName: "Pothos",
		Light: "明亮的散射光，避免暴晒", Water: "见干见湿，夏季每周两次", Soil: "疏松透气的腐叶土",
		LightEN: "Bright indirect light, no direct sun", WaterEN: "Water when the top soil is dry", SoilEN: "Loose, well-draining potting mix",
	},
	{
		Name: "龟背竹", CommonName: "Monstera",
		Light: "半阴或散射光", Water: "保持盆土微湿，冬季减少浇水", Soil: "富含有机质的酸性土",
		LightEN: "Partial shade or filtered light", WaterEN: "Keep slightly moist, water less in winter", SoilEN: "Rich, slightly acidic soil",
	},
	{
		Name: "虎皮兰", CommonName: "Snake plant",
		Light: "耐阴，也可接受直射光", Water: "耐旱，每两到三周一次", Soil: "沙质土，排水良好",
		LightEN: "Tolerates low light and direct sun", WaterEN: "Drought tolerant, every 2-3 weeks", SoilEN: "Sandy, fast-draining soil",
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample plants when the table is empty",
	Long: `Insert a few sample plants owned by an existing operator account.

Examples:
  plantadmin seed
  plantadmin seed --owner-email gardener@example.com`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&flagOwnerEmail, "owner-email", "", "owner of the sample plants (defaults to the first account)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	var count int64
	if err := gdb.Model(&db.Plant{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		cmd.Println("植物已存在，跳过创建")
		return nil
	}

	owner, err := resolveOwner(gdb, flagOwnerEmail)
	if err != nil {
		return err
	}

	editor := service.NewPlantEditor(store.NewPlantStore(gdb, nil), nil)
	for _, input := range samplePlants {
		plant, err := editor.Create(cmd.Context(), input, nil, owner.ID)
		if err != nil {
			return fmt.Errorf("seed %s: %w", input.Name, err)
		}
		cmd.Printf("✅ %s (%s)\n", plant.Name, plant.ID)
	}
	return nil
}

func resolveOwner(gdb *gorm.DB, email string) (*db.User, error) {
	var user db.User
	query := gdb.Order("created_at ASC")
	if email != "" {
		query = query.Where("email = ?", db.NormalizeEmail(email))
	}
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("no operator account found, run init-user first")
		}
		return nil, err
	}
	return &user, nil
}
