package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInteraction_UserResolution(t *testing.T) {
	dmUser := &User{ID: "u1", Username: "alice"}
	dm := NewInteraction(&Payload{User: dmUser}, KindCommand)
	assert.Equal(t, dmUser, dm.User())

	guildUser := &User{ID: "u2", Username: "bob"}
	guild := NewInteraction(&Payload{Member: &Member{User: guildUser, Nick: "bobby"}}, KindCommand)
	assert.Equal(t, guildUser, guild.User())
	assert.Equal(t, "bobby", guild.Member().Nick)

	anonymous := NewInteraction(&Payload{}, KindPing)
	assert.Nil(t, anonymous.User())
	assert.Nil(t, anonymous.Member())
}

func TestInteraction_OptionsAreCopied(t *testing.T) {
	p := &Payload{
		Data: &PayloadData{
			Name: "echo",
			Options: []CommandOption{
				{Name: "first", Value: "a"},
				{Name: "second", Value: "b"},
			},
		},
	}
	in := NewInteraction(p, KindCommand)

	opts := in.Options()
	assert.Equal(t, []CommandOption{{Name: "first", Value: "a"}, {Name: "second", Value: "b"}}, opts)

	opts[0].Name = "mutated"
	assert.Equal(t, "first", in.Options()[0].Name)
}

func TestInteraction_ValuesAreCopied(t *testing.T) {
	p := &Payload{
		Data: &PayloadData{
			CustomID: "color_picker",
			Values:   []string{"red", "green"},
		},
	}
	in := NewInteraction(p, KindMenu)

	values := in.Values()
	assert.Equal(t, []string{"red", "green"}, values)

	values[0] = "blue"
	assert.Equal(t, "red", in.Values()[0])
}

func TestInteraction_FirstValue(t *testing.T) {
	in := NewInteraction(&Payload{
		Data: &PayloadData{CustomID: "color_picker", Values: []string{"red", "green"}},
	}, KindMenu)
	assert.Equal(t, "red", in.FirstValue())

	empty := NewInteraction(&Payload{Data: &PayloadData{CustomID: "color_picker"}}, KindMenu)
	assert.Empty(t, empty.FirstValue())

	noData := NewInteraction(&Payload{}, KindMenu)
	assert.Empty(t, noData.FirstValue())
}

func TestInteraction_EmptyData(t *testing.T) {
	in := NewInteraction(&Payload{ID: "1", Token: "tok", GuildID: "g1", ChannelID: "c1"}, KindPing)
	assert.Equal(t, "1", in.ID())
	assert.Equal(t, "tok", in.Token())
	assert.Equal(t, "g1", in.GuildID())
	assert.Equal(t, "c1", in.ChannelID())
	assert.Empty(t, in.CommandName())
	assert.Empty(t, in.CustomID())
	assert.Nil(t, in.Options())
	assert.Nil(t, in.Values())
}

func TestKindEvent(t *testing.T) {
	event, ok := KindEvent(KindCommand)
	assert.True(t, ok)
	assert.Equal(t, EventCommandReceive, event)

	event, ok = KindEvent(KindButton)
	assert.True(t, ok)
	assert.Equal(t, EventButtonClick, event)

	event, ok = KindEvent(KindMenu)
	assert.True(t, ok)
	assert.Equal(t, EventMenuSelect, event)

	_, ok = KindEvent(KindPing)
	assert.False(t, ok)
	_, ok = KindEvent(KindUnsupported)
	assert.False(t, ok)
}

func TestResponseHelpers(t *testing.T) {
	pong := Pong()
	assert.Equal(t, ResponsePong, pong.Type)
	assert.Nil(t, pong.Data)

	msg := Message("hello")
	assert.Equal(t, ResponseChannelMessage, msg.Type)
	assert.Equal(t, "hello", msg.Data.Content)
	assert.Zero(t, msg.Data.Flags)

	eph := Ephemeral("secret")
	assert.Equal(t, ResponseChannelMessage, eph.Type)
	assert.Equal(t, FlagEphemeral, eph.Data.Flags)
}
