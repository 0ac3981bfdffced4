package types

import (
	"fmt"
	"strconv"
	"strings"
)

// StreamInfo describes a published sample stream. It travels as mDNS TXT
// records so consumers can pick a stream before subscribing.
type StreamInfo struct {
	Name         string   `json:"name"`
	ContentType  string   `json:"type"`
	SourceID     string   `json:"source_id"`
	NominalRate  float64  `json:"nominal_rate"`
	ChannelCount int      `json:"channel_count"`
	Channels     []string `json:"channels"`
}

const (
	txtName        = "name"
	txtType        = "type"
	txtSourceID    = "source_id"
	txtRate        = "rate"
	txtChannelCnt  = "channel_count"
	txtChannels    = "channels"
	channelListSep = ","
)

func (i StreamInfo) TXT() []string {
	return []string{
		txtName + "=" + i.Name,
		txtType + "=" + i.ContentType,
		txtSourceID + "=" + i.SourceID,
		txtRate + "=" + strconv.FormatFloat(i.NominalRate, 'f', -1, 64),
		txtChannelCnt + "=" + strconv.Itoa(i.ChannelCount),
		txtChannels + "=" + strings.Join(i.Channels, channelListSep),
	}
}

func ParseStreamInfoTXT(records []string) (StreamInfo, error) {
	var info StreamInfo
	for _, rec := range records {
		key, value, ok := strings.Cut(rec, "=")
		if !ok {
			continue
		}
		switch key {
		case txtName:
			info.Name = value
		case txtType:
			info.ContentType = value
		case txtSourceID:
			info.SourceID = value
		case txtRate:
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return info, fmt.Errorf("bad %s record %q: %w", txtRate, value, err)
			}
			info.NominalRate = rate
		case txtChannelCnt:
			n, err := strconv.Atoi(value)
			if err != nil {
				return info, fmt.Errorf("bad %s record %q: %w", txtChannelCnt, value, err)
			}
			info.ChannelCount = n
		case txtChannels:
			if value != "" {
				info.Channels = strings.Split(value, channelListSep)
			}
		}
	}
	return info, nil
}
