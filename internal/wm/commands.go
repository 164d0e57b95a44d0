package wm

// Command names accepted by Manager.Execute.
const (
	CommandSnapLeft    = "snap-left"
	CommandSnapRight   = "snap-right"
	CommandSnapTop     = "snap-top"
	CommandSnapBottom  = "snap-bottom"
	CommandMaximize    = "maximize"
	CommandRestore     = "restore"
	CommandMinimizeAll = "minimize-all"
	CommandCycleNext   = "cycle-next"
	CommandTile2Col    = "tile-2col"
	CommandTile3Col    = "tile-3col"
	CommandTile2x2     = "tile-2x2"
	CommandTileAuto    = "tile-auto"
	CommandCloseActive = "close-active"
)

// Commands lists every command name in display order.
func Commands() []string {
	return []string{
		CommandSnapLeft,
		CommandSnapRight,
		CommandSnapTop,
		CommandSnapBottom,
		CommandMaximize,
		CommandRestore,
		CommandMinimizeAll,
		CommandCycleNext,
		CommandTile2Col,
		CommandTile3Col,
		CommandTile2x2,
		CommandTileAuto,
		CommandCloseActive,
	}
}
