// internal/models/card.go
package models

// Category classifies how a card type scores and behaves.
type Category string

const (
	CategoryDuo        Category = "DUO"        // scored by pairing; playing a pair triggers an effect
	CategoryCollect    Category = "COLLECT"    // scored by a fixed per-count or stepped formula
	CategoryMultiplier Category = "MULTIPLIER" // presence multiplies another type's count
)

// CardTypeID identifies one of the 13 static card types.
type CardTypeID string

const (
	TypeCrab    CardTypeID = "CRAB"
	TypeBoat    CardTypeID = "BOAT"
	TypeFish    CardTypeID = "FISH"
	TypeShark   CardTypeID = "SHARK"
	TypeShell   CardTypeID = "SHELL"
	TypeOctopus CardTypeID = "OCTOPUS"
	TypePenguin CardTypeID = "PENGUIN"
	TypeSailor  CardTypeID = "SAILOR"
	TypeMermaid CardTypeID = "MERMAID"
	TypeShip    CardTypeID = "SHIP"
	TypeShoal   CardTypeID = "SHOAL"
	TypeSnowman CardTypeID = "SNOWMAN"
	TypeCaptain CardTypeID = "CAPTAIN"
)

// ColorGroup is the display color family used for the mermaid color bonus.
// ColorMulti cards never count toward a color majority.
type ColorGroup string

const (
	ColorRed    ColorGroup = "RED"
	ColorBlue   ColorGroup = "BLUE"
	ColorGreen  ColorGroup = "GREEN"
	ColorBlack  ColorGroup = "BLACK"
	ColorYellow ColorGroup = "YELLOW"
	ColorPurple ColorGroup = "PURPLE"
	ColorCyan   ColorGroup = "CYAN"
	ColorOrange ColorGroup = "ORANGE"
	ColorMulti  ColorGroup = "MULTI"
)

// CardType is the static metadata for one card type.
type CardType struct {
	ID       CardTypeID `json:"id"`
	Name     string     `json:"name"`
	Category Category   `json:"category"`
	Color    ColorGroup `json:"color"`
	Count    int        `json:"count"` // copies in the deck
}

// CardTypes is the full catalog. Supply counts total 54.
var CardTypes = map[CardTypeID]CardType{
	TypeCrab:    {ID: TypeCrab, Name: "Paper Crab", Category: CategoryDuo, Color: ColorRed, Count: 9},
	TypeBoat:    {ID: TypeBoat, Name: "Origami Boat", Category: CategoryDuo, Color: ColorBlue, Count: 8},
	TypeFish:    {ID: TypeFish, Name: "Flying Fish", Category: CategoryDuo, Color: ColorGreen, Count: 7},
	TypeShark:   {ID: TypeShark, Name: "Shadow Shark", Category: CategoryDuo, Color: ColorBlack, Count: 5},
	TypeShell:   {ID: TypeShell, Name: "Spiral Shell", Category: CategoryCollect, Color: ColorYellow, Count: 6},
	TypeOctopus: {ID: TypeOctopus, Name: "Ink Octopus", Category: CategoryCollect, Color: ColorPurple, Count: 5},
	TypePenguin: {ID: TypePenguin, Name: "Ice Penguin", Category: CategoryCollect, Color: ColorCyan, Count: 4},
	TypeSailor:  {ID: TypeSailor, Name: "Lost Sailor", Category: CategoryCollect, Color: ColorOrange, Count: 2},
	TypeMermaid: {ID: TypeMermaid, Name: "Mystic Mermaid", Category: CategoryMultiplier, Color: ColorMulti, Count: 4},
	TypeShip:    {ID: TypeShip, Name: "Ship", Category: CategoryMultiplier, Color: ColorBlue, Count: 1},
	TypeShoal:   {ID: TypeShoal, Name: "Shoal of Fish", Category: CategoryMultiplier, Color: ColorGreen, Count: 1},
	TypeSnowman: {ID: TypeSnowman, Name: "Snowman", Category: CategoryMultiplier, Color: ColorCyan, Count: 1},
	TypeCaptain: {ID: TypeCaptain, Name: "Captain", Category: CategoryMultiplier, Color: ColorOrange, Count: 1},
}

// DeckSize is the total number of physical cards in play.
const DeckSize = 54

// Card is a single physical card instance. Identity is per instance; Type
// points into the static catalog.
type Card struct {
	ID   string     `json:"id"`
	Type CardTypeID `json:"type"`
}

// TypeInfo returns the catalog entry for this card.
func (c Card) TypeInfo() CardType {
	return CardTypes[c.Type]
}
