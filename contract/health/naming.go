package health

import (
	"fmt"
	"strings"
)

const defaultPartition = "aws"

// Naming holds the inputs of the channel naming convention.
type Naming struct {
	Partition string
	Region    string
	Account   string
	Prefix    string
}

// ChannelPrefix returns the leading string every routable channel ID must carry:
// arn:<partition>:sns:<region>:<account>:<prefix>.
func (n Naming) ChannelPrefix() string {
	partition := n.Partition
	if partition == "" {
		partition = defaultPartition
	}

	return fmt.Sprintf("arn:%s:sns:%s:%s:%s", partition, n.Region, n.Account, n.Prefix)
}

// ChannelName returns the resource part of a channel ID (the segment after the last colon).
// IDs without a colon are returned unchanged.
func ChannelName(channelID string) string {
	if i := strings.LastIndexByte(channelID, ':'); i >= 0 {
		return channelID[i+1:]
	}

	return channelID
}
