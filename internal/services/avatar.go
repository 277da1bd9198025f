package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math/rand"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/storage"
	"github.com/courseloom/scorm-backend/internal/types"
)

const avatarKey = "avatars"

// AvatarService renders a circular initials avatar for a new user and
// writes it into the content store.
type AvatarService interface {
	CreateUserAvatar(ctx context.Context, user *types.User) error
}

type avatarService struct {
	log      *logger.Logger
	store    storage.Store
	bgColors []color.NRGBA
	fontFace font.Face
}

func NewAvatarService(baseLog *logger.Logger, store storage.Store) (AvatarService, error) {
	serviceLog := baseLog.With("service", "AvatarService")

	fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT"))
	if fontPath == "" {
		return nil, fmt.Errorf("env var AVATAR_FONT is empty")
	}
	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("could not load avatar font: %w", err)
	}

	return &avatarService{
		log:   serviceLog,
		store: store,
		bgColors: []color.NRGBA{
			{R: 0x2E, G: 0x6F, B: 0xED, A: 0xFF},
			{R: 0xD9, G: 0x48, B: 0x4E, A: 0xFF},
			{R: 0x2F, G: 0x9E, B: 0x6B, A: 0xFF},
			{R: 0xB4, G: 0x5F, B: 0xD1, A: 0xFF},
			{R: 0xE0, G: 0x8A, B: 0x2C, A: 0xFF},
			{R: 0x3B, G: 0xA5, B: 0xB8, A: 0xFF},
		},
		fontFace: face,
	}, nil
}

func (as *avatarService) CreateUserAvatar(ctx context.Context, user *types.User) error {
	if user == nil {
		return fmt.Errorf("user required")
	}

	buf, err := as.renderInitials(user.FirstName, user.LastName)
	if err != nil {
		return err
	}

	relPath := fmt.Sprintf("%s.png", user.ID.String())
	if err := as.store.WriteFile(avatarKey, relPath, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to store user avatar: %w", err)
	}
	user.AvatarPath = avatarKey + "/" + relPath
	return nil
}

func (as *avatarService) renderInitials(first, last string) (bytes.Buffer, error) {
	const size = 512
	var buf bytes.Buffer

	dc := gg.NewContext(size, size)

	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()

	base := as.bgColors[rand.Intn(len(as.bgColors))]
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	initials := computeInitials(first, last)

	dc.SetFontFace(as.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(size)/2, float64(size)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2)+5, cy+(th/2)-10)

	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

func computeInitials(first, last string) string {
	fInit := "?"
	if len(first) > 0 {
		fInit = strings.ToUpper(first[:1])
	}
	lInit := "?"
	if len(last) > 0 {
		lInit = strings.ToUpper(last[:1])
	}
	return fInit + lInit
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
