package utils

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sealdice/perworld/perworld/types"
)

var keyEncoding = base64.RawURLEncoding

// EncodeKeyPart 把任意字符串编码为不含分隔符的键片段，空串记为 "_"
func EncodeKeyPart(value string) string {
	if value == "" {
		return "_"
	}
	return keyEncoding.EncodeToString([]byte(value))
}

func DecodeKeyPart(value string) (string, error) {
	if value == "_" {
		return "", nil
	}
	decoded, err := keyEncoding.DecodeString(value)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// PackKey 连写 分组:模式:玩家ID。分组名经过编码，可以包含冒号。
func PackKey(k types.Key) string {
	return fmt.Sprintf("%s:%s:%s", EncodeKeyPart(k.Group), k.GameMode, k.PlayerID)
}

// PackGroupMode is the part of a packed key that identifies one slot of a player.
func PackGroupMode(group string, mode types.GameMode) string {
	return fmt.Sprintf("%s:%s", EncodeKeyPart(group), mode)
}

// UnpackKey 分离 PackKey 的结果
func UnpackKey(packed string) (types.Key, error) {
	parts := strings.Split(packed, ":")
	if len(parts) != 3 {
		return types.Key{}, fmt.Errorf("invalid key %q", packed)
	}
	group, mode, err := UnpackGroupMode(parts[0] + ":" + parts[1])
	if err != nil {
		return types.Key{}, err
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return types.Key{}, fmt.Errorf("invalid key %q: %w", packed, err)
	}
	return types.Key{Group: group, GameMode: mode, PlayerID: id}, nil
}

func UnpackGroupMode(packed string) (group string, mode types.GameMode, err error) {
	groupPart, modePart, ok := strings.Cut(packed, ":")
	if !ok {
		return "", types.GameModeNone, fmt.Errorf("invalid group/mode %q", packed)
	}
	group, err = DecodeKeyPart(groupPart)
	if err != nil {
		return "", types.GameModeNone, fmt.Errorf("invalid group in %q: %w", packed, err)
	}
	mode, err = types.ParseGameMode(modePart)
	if err != nil {
		return "", types.GameModeNone, fmt.Errorf("invalid mode in %q: %w", packed, err)
	}
	return group, mode, nil
}
