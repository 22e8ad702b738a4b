package discord

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"layeh.com/gopus"

	"github.com/bwmarrin/discordgo"
	"github.com/kkdai/youtube/v2"

	"voicelevels/pkg/utils"
)

// Track is one queued song.
type Track struct {
	Title     string
	URL       string
	Duration  time.Duration
	Requester string
	ChannelID string
	Thumbnail string
}

// guildPlayer is the queue and voice connection for one guild. Paused
// and Volume are read by the streaming goroutine between frames, so
// they go through the mutex.
type guildPlayer struct {
	mu        sync.Mutex
	Tracks    []Track
	Current   int
	IsPlaying bool
	Loop      bool
	Paused    bool
	Volume    float64
	VoiceConn *discordgo.VoiceConnection
}

func (p *guildPlayer) setPaused(paused bool) {
	p.mu.Lock()
	p.Paused = paused
	p.mu.Unlock()
}

func (p *guildPlayer) setVolume(volume float64) {
	p.mu.Lock()
	p.Volume = volume
	p.mu.Unlock()
}

func (p *guildPlayer) playbackState() (paused bool, volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Paused, p.Volume
}

// musicManager owns the per-guild players. It lives on the Bot so
// tests and multiple bot instances never share state.
type musicManager struct {
	mu       sync.Mutex
	players  map[string]*guildPlayer
	ytClient youtube.Client
}

func newMusicManager() *musicManager {
	return &musicManager{players: make(map[string]*guildPlayer)}
}

func (mm *musicManager) player(guildID string) *guildPlayer {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	player, ok := mm.players[guildID]
	if !ok {
		player = &guildPlayer{Volume: 0.5}
		mm.players[guildID] = player
	}
	return player
}

var youtubeURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=`),
	regexp.MustCompile(`^https?://youtu\.be/`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/playlist\?`),
}

func isYouTubeURL(url string) bool {
	for _, pattern := range youtubeURLPatterns {
		if pattern.MatchString(url) {
			return true
		}
	}
	return false
}

// handleMusicCommand handles music commands issued via bot mention.
func (b *Bot) handleMusicCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	content := strings.TrimSpace(m.Content)

	botUserID := s.State.User.ID
	content = strings.ReplaceAll(content, "<@"+botUserID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botUserID+">", "")
	content = strings.TrimSpace(content)

	if content == "" {
		s.ChannelMessageSend(m.ChannelID, "🎵 **Music**\n\n"+
			"• `@bot [YouTube URL]` - play music\n"+
			"• `@bot skip` / `stop` / `queue`\n"+
			"• `@bot pause` / `resume` / `loop`\n"+
			"• `@bot volume [0-100]`")
		return
	}

	voiceState, err := s.State.VoiceState(m.GuildID, m.Author.ID)
	if err != nil || voiceState == nil {
		s.ChannelMessageSend(m.ChannelID, "❌ You need to be in a voice channel first!")
		return
	}

	parts := strings.Fields(content)
	if len(parts) == 0 {
		return
	}

	switch strings.ToLower(parts[0]) {
	case "skip":
		b.handleSkip(s, m)
	case "stop":
		b.handleStopMusic(s, m)
	case "queue":
		b.handleQueue(s, m)
	case "pause":
		b.handlePause(s, m)
	case "resume":
		b.handleResume(s, m)
	case "loop":
		b.handleLoop(s, m)
	case "volume":
		b.handleVolume(s, m, parts)
	default:
		b.handlePlay(s, m, content, voiceState.ChannelID)
	}
}

func (b *Bot) handlePlay(s *discordgo.Session, m *discordgo.MessageCreate, query, channelID string) {
	loadingMsg, _ := s.ChannelMessageSend(m.ChannelID, "🔍 Looking up the track...")

	track, err := b.music.extractTrack(query)
	if err != nil {
		log.Printf("Music extraction error: %v", err)
		s.ChannelMessageEdit(m.ChannelID, loadingMsg.ID, "❌ Failed to fetch track info: "+err.Error())
		return
	}

	track.Requester = m.Author.Username
	track.ChannelID = m.ChannelID

	player := b.music.player(m.GuildID)
	player.Tracks = append(player.Tracks, *track)

	embed := &discordgo.MessageEmbed{
		Title: "🎵 Added to queue",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Title", Value: utils.TruncateString(track.Title, 100), Inline: true},
			{Name: "Duration", Value: utils.FormatDuration(int64(track.Duration / time.Second)), Inline: true},
			{Name: "Requested by", Value: track.Requester, Inline: true},
		},
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: track.Thumbnail},
		Color:     0x00ff00,
	}
	s.ChannelMessageEditEmbed(m.ChannelID, loadingMsg.ID, embed)

	if player.VoiceConn == nil || !player.VoiceConn.Ready {
		if err := b.connectToVoice(s, m.GuildID, channelID); err != nil {
			s.ChannelMessageSend(m.ChannelID, "❌ Failed to join the voice channel: "+err.Error())
			return
		}
	}

	if !player.IsPlaying {
		go b.runPlayer(s, m.GuildID)
	}
}

// extractTrack resolves a query into track metadata. Only direct
// YouTube URLs are supported; yt-dlp fills in when the API call fails.
func (mm *musicManager) extractTrack(query string) (*Track, error) {
	if !isYouTubeURL(query) {
		return nil, fmt.Errorf("only YouTube URLs are supported for now (`@bot https://youtube.com/watch?v=...`)")
	}

	video, err := mm.ytClient.GetVideo(query)
	if err != nil {
		log.Printf("YouTube API error, falling back to yt-dlp: %v", err)
		return extractWithYtDlp(query)
	}

	thumbnail := ""
	if len(video.Thumbnails) > 0 {
		thumbnail = video.Thumbnails[0].URL
	}

	return &Track{
		Title:     video.Title,
		URL:       query,
		Duration:  video.Duration,
		Thumbnail: thumbnail,
	}, nil
}

func extractWithYtDlp(url string) (*Track, error) {
	cmd := exec.Command("yt-dlp", "--get-title", url)
	titleBytes, err := cmd.Output()
	title := "YouTube Video"
	if err == nil && len(titleBytes) > 0 {
		title = strings.TrimSpace(string(titleBytes))
	}

	return &Track{Title: title, URL: url}, nil
}

func (b *Bot) connectToVoice(s *discordgo.Session, guildID, channelID string) error {
	voiceConn, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			voiceConn.Disconnect()
			return fmt.Errorf("timeout waiting for voice connection")
		case <-ticker.C:
			if voiceConn.Ready {
				b.music.player(guildID).VoiceConn = voiceConn
				return nil
			}
		}
	}
}

func (b *Bot) runPlayer(s *discordgo.Session, guildID string) {
	player := b.music.player(guildID)
	player.IsPlaying = true

	for player.Current < len(player.Tracks) {
		track := player.Tracks[player.Current]

		embed := &discordgo.MessageEmbed{
			Title: "🎵 Now playing",
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Title", Value: utils.TruncateString(track.Title, 100), Inline: true},
				{Name: "Duration", Value: utils.FormatDuration(int64(track.Duration / time.Second)), Inline: true},
				{Name: "Requested by", Value: track.Requester, Inline: true},
			},
			Thumbnail: &discordgo.MessageEmbedThumbnail{URL: track.Thumbnail},
			Color:     0x00ff00,
		}
		s.ChannelMessageSendEmbed(track.ChannelID, embed)

		if err := b.music.streamTrack(player, track.URL); err != nil {
			log.Printf("Failed to stream audio: %v", err)
			s.ChannelMessageSend(track.ChannelID, fmt.Sprintf("❌ Failed to play the track: %v", err))
		}

		player.Current++
		if player.Current >= len(player.Tracks) && player.Loop {
			player.Current = 0
		}
	}

	player.IsPlaying = false
	player.Current = 0
}

// scalePCM applies a volume multiplier to raw samples in place,
// clamping at the int16 range.
func scalePCM(samples []int16, volume float64) {
	if volume == 1.0 {
		return
	}
	for i, s := range samples {
		v := float64(s) * volume
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples[i] = int16(v)
	}
}

// streamTrack pipes the YouTube audio stream through ffmpeg into
// 48kHz stereo PCM and sends 20ms Opus frames over the voice
// connection. Pause and volume are re-read from the player between
// frames.
func (mm *musicManager) streamTrack(player *guildPlayer, url string) error {
	vc := player.VoiceConn
	if vc == nil || !vc.Ready {
		return fmt.Errorf("voice connection not ready")
	}

	video, err := mm.ytClient.GetVideo(url)
	if err != nil {
		return fmt.Errorf("failed to fetch video info: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return fmt.Errorf("no audio formats available")
	}

	// Prefer opus/webm audio, then m4a, then whatever is first.
	var format *youtube.Format
	for _, f := range formats {
		if f.ItagNo == 251 || strings.Contains(f.MimeType, "audio/webm") {
			format = &f
			break
		}
	}
	if format == nil {
		for _, f := range formats {
			if f.ItagNo == 140 || strings.Contains(f.MimeType, "audio/mp4") {
				format = &f
				break
			}
		}
	}
	if format == nil {
		format = &formats[0]
	}

	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", format.URL,
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	defer cmd.Wait()

	opusEncoder, err := gopus.NewEncoder(48000, 2, gopus.Audio)
	if err != nil {
		return fmt.Errorf("failed to create Opus encoder: %w", err)
	}

	vc.Speaking(true)
	defer vc.Speaking(false)

	pcmBuf := make([]byte, 960*2*2) // 20ms frame @48kHz stereo
	pcmInt16 := make([]int16, 960*2)

	for {
		paused, volume := player.playbackState()
		if paused {
			time.Sleep(200 * time.Millisecond)
			continue
		}

		if _, err := io.ReadFull(stdout, pcmBuf); err == io.EOF {
			break
		} else if err != nil {
			log.Printf("Error reading PCM data: %v", err)
			break
		}

		if err := binary.Read(bytes.NewReader(pcmBuf), binary.LittleEndian, pcmInt16); err != nil {
			log.Printf("Error decoding PCM: %v", err)
			continue
		}

		scalePCM(pcmInt16, volume)

		opusFrame, err := opusEncoder.Encode(pcmInt16, 960, 1920)
		if err != nil {
			log.Printf("Error encoding Opus frame: %v", err)
			continue
		}

		select {
		case vc.OpusSend <- opusFrame:
		case <-time.After(5 * time.Second):
			return fmt.Errorf("timeout sending audio frame")
		}
	}

	return nil
}

func (b *Bot) handleSkip(s *discordgo.Session, m *discordgo.MessageCreate) {
	player := b.music.player(m.GuildID)
	if len(player.Tracks) == 0 {
		s.ChannelMessageSend(m.ChannelID, "❌ The queue is empty!")
		return
	}
	player.Current++
	s.ChannelMessageSend(m.ChannelID, "⏭️ Skipping the current track...")
}

func (b *Bot) handleStopMusic(s *discordgo.Session, m *discordgo.MessageCreate) {
	player := b.music.player(m.GuildID)
	player.IsPlaying = false
	player.Tracks = nil
	player.Current = 0

	if player.VoiceConn != nil {
		player.VoiceConn.Disconnect()
		player.VoiceConn = nil
	}

	s.ChannelMessageSend(m.ChannelID, "⏹️ Stopped playback and cleared the queue.")
}

func (b *Bot) handleQueue(s *discordgo.Session, m *discordgo.MessageCreate) {
	player := b.music.player(m.GuildID)
	if len(player.Tracks) == 0 {
		s.ChannelMessageSend(m.ChannelID, "📋 The queue is empty!")
		return
	}

	var queueText strings.Builder
	queueText.WriteString("📋 **Queue**\n\n")
	for i, track := range player.Tracks {
		queueText.WriteString(formatQueueLine(i, player.Current, track))
		queueText.WriteString("\n")
	}

	s.ChannelMessageSend(m.ChannelID, queueText.String())
}

// formatQueueLine renders one queue entry with the title truncated so
// a long queue stays under the message size limit.
func formatQueueLine(index, current int, track Track) string {
	status := fmt.Sprintf("%d.", index+1)
	if index == current {
		status = "🎵 **Now playing**"
	} else if index < current {
		status = "✅"
	}
	title := utils.TruncateString(track.Title, 60)
	return fmt.Sprintf("%s %s - %s", status, title, utils.FormatDuration(int64(track.Duration/time.Second)))
}

func (b *Bot) handlePause(s *discordgo.Session, m *discordgo.MessageCreate) {
	player := b.music.player(m.GuildID)
	if !player.IsPlaying {
		s.ChannelMessageSend(m.ChannelID, "❌ Nothing is playing!")
		return
	}
	player.setPaused(true)
	s.ChannelMessageSend(m.ChannelID, "⏸️ Paused.")
}

func (b *Bot) handleResume(s *discordgo.Session, m *discordgo.MessageCreate) {
	player := b.music.player(m.GuildID)
	paused, _ := player.playbackState()
	if !paused {
		s.ChannelMessageSend(m.ChannelID, "❌ Nothing is paused!")
		return
	}
	player.setPaused(false)
	s.ChannelMessageSend(m.ChannelID, "▶️ Resumed.")
}

func (b *Bot) handleLoop(s *discordgo.Session, m *discordgo.MessageCreate) {
	player := b.music.player(m.GuildID)
	player.Loop = !player.Loop

	status := "❌ OFF"
	if player.Loop {
		status = "✅ ON"
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🔁 Loop mode: %s", status))
}

func (b *Bot) handleVolume(s *discordgo.Session, m *discordgo.MessageCreate, parts []string) {
	if len(parts) < 2 {
		s.ChannelMessageSend(m.ChannelID, "❌ Usage: `@bot volume [0-100]`")
		return
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 || n > 100 {
		s.ChannelMessageSend(m.ChannelID, "❌ Volume must be a number between 0 and 100.")
		return
	}
	b.music.player(m.GuildID).setVolume(float64(n) / 100)
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🔊 Volume set to %d%%", n))
}
