package command

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/savekeep-go/internal/core/domain"
)

// pointRow is the table view of a save point.
type pointRow struct {
	SlotID      int32     `json:"slot_id" yaml:"slot_id" table:"SLOT"`
	SerialID    int32     `json:"serial_id" yaml:"serial_id" table:"SERIAL"`
	Name        string    `json:"name" yaml:"name" table:"NAME"`
	PlayerName  string    `json:"player_name" yaml:"player_name" table:"PLAYER"`
	PlayerLevel int32     `json:"player_level" yaml:"player_level" table:"LEVEL"`
	SceneName   string    `json:"scene_name" yaml:"scene_name" table:"SCENE"`
	PlayTime    float32   `json:"play_time" yaml:"play_time" table:"PLAY TIME"`
	SaveTime    time.Time `json:"save_time" yaml:"save_time" table:"SAVED"`
	GameVersion string    `json:"game_version" yaml:"game_version" table:"VERSION,wide"`
	DataFile    string    `json:"data_file" yaml:"data_file" table:"DATA FILE,wide"`
	Screenshot  bool      `json:"screenshot" yaml:"screenshot" table:"SCREENSHOT,wide"`
}

func newPointRow(info *domain.SaveInfo) pointRow {
	return pointRow{
		SlotID:      info.SlotID,
		SerialID:    info.SerialID,
		Name:        info.Name,
		PlayerName:  info.PlayerName,
		PlayerLevel: info.PlayerLevel,
		SceneName:   info.SceneName,
		PlayTime:    info.PlayTime,
		SaveTime:    info.SaveTime,
		GameVersion: info.GameVersion,
		DataFile:    info.DataFile,
		Screenshot:  info.HasScreenshot(),
	}
}

func pointRows(infos []*domain.SaveInfo) []pointRow {
	rows := make([]pointRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, newPointRow(info))
	}
	return rows
}

// SlotsCommand lists the newest save point of every slot.
func SlotsCommand() *cli.Command {
	return &cli.Command{
		Name:    "slots",
		Aliases: []string{"ls"},
		Usage:   "List save slots with their newest save point",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			return rt.Render(pointRows(rt.Component.HeadInfos()))
		},
	}
}

// PointsCommand lists every save point of one slot.
func PointsCommand() *cli.Command {
	return &cli.Command{
		Name:  "points",
		Usage: "List the save points of a slot, newest first",
		Flags: []cli.Flag{slotFlag(true)},
		Action: func(c *cli.Context) error {
			slotID, err := int32Flag(c, "slot")
			if err != nil {
				return err
			}
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			infos, err := rt.Component.Infos(slotID)
			if err != nil {
				return err
			}
			return rt.Render(pointRows(infos))
		},
	}
}
