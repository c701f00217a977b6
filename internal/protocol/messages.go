package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
	PlayerName        string   `json:"player_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	CatalogDigest   string      `json:"catalog_digest"`
	Rounding        string      `json:"rounding"`
	Levels          []LevelInfo `json:"levels"`
}

type LevelInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	BoardSize int    `json:"board_size"`
	Pieces    int    `json:"pieces"`
	Unlocked  bool   `json:"unlocked"`
	Solved    bool   `json:"solved"`
}

// ACT (client -> server). Which fields are read depends on Op.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             int64  `json:"seq"`
	Op              string `json:"op"`

	Level *int   `json:"level,omitempty"`
	Piece string `json:"piece,omitempty"`
	// Delta is the TRANSLATE offset.
	Delta *[3]float64 `json:"delta,omitempty"`

	// ROTATE.
	Gesture  string      `json:"gesture,omitempty"`
	Forward  *[3]float64 `json:"forward,omitempty"`
	Axis     string      `json:"axis,omitempty"`
	Quarters int         `json:"quarters,omitempty"`
}

// RESULT (server -> client), one per ACT.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             int64  `json:"seq"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	Won   bool        `json:"won"`
	State *BoardState `json:"state,omitempty"`
	// Levels is filled for STATUS and after a solve.
	Levels []LevelInfo `json:"levels,omitempty"`
}

type BoardState struct {
	Phase   string       `json:"phase"`
	Level   int          `json:"level"`
	Grabbed string       `json:"grabbed,omitempty"`
	Pieces  []PieceState `json:"pieces,omitempty"`
}

type PieceState struct {
	ID      string     `json:"id"`
	Shape   string     `json:"shape,omitempty"`
	Texture string     `json:"texture"`
	Pos     [3]float64 `json:"pos"`
	Rot     [3][3]int  `json:"rot"`
	Voxels  [][3]int   `json:"voxels"`
	Valid   bool       `json:"valid"`
	Live    bool       `json:"live,omitempty"`
}
