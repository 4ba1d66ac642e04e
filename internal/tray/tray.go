package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/yok-tottii/ezdictate/internal/events"
	"github.com/yok-tottii/ezdictate/internal/i18n"
	"github.com/yok-tottii/ezdictate/internal/output"
	"github.com/yok-tottii/ezdictate/internal/pipeline"
)

// surface is the part of systray the manager draws on.
type surface interface {
	SetIcon(icon []byte)
	SetTooltip(text string)
}

type systraySurface struct{}

func (systraySurface) SetIcon(icon []byte)    { systray.SetIcon(icon) }
func (systraySurface) SetTooltip(text string) { systray.SetTooltip(text) }

// menuItem is the subset of *systray.MenuItem the manager updates.
type menuItem interface {
	SetTitle(title string)
	Check()
	Uncheck()
}

// Manager manages the system tray icon and menu
type Manager struct {
	mu         sync.Mutex
	state      pipeline.State
	hotkey     string
	polish     bool
	outputMode output.Mode

	translator *i18n.Translator
	ui         surface
	icons      map[pipeline.State][]byte

	onReadyCallback func()
	onSettings      func()
	onDictation     func()
	onPolish        func(enabled bool)
	onOutputMode    func(mode output.Mode)
	onQuit          func()

	menuSettings  *systray.MenuItem
	menuDictation *systray.MenuItem
	menuPolish    *systray.MenuItem
	menuOutput    *systray.MenuItem
	menuKeyboard  *systray.MenuItem
	menuClipboard *systray.MenuItem
	menuQuit      *systray.MenuItem

	// labelled pairs every created item with its translation key so
	// labels can be refreshed when the UI language changes.
	labelled []labelledItem
}

type labelledItem struct {
	item menuItem
	key  string
}

// Config holds tray manager configuration
type Config struct {
	Translator    *i18n.Translator
	Hotkey        string
	PolishEnabled bool
	OutputMode    output.Mode

	OnReady      func() // Called when systray is ready for initialization
	OnSettings   func()
	OnDictation  func() // Start or stop dictation
	OnPolish     func(enabled bool)
	OnOutputMode func(mode output.Mode)
	OnQuit       func()
}

// NewManager creates a new tray manager
func NewManager(config Config) *Manager {
	translator := config.Translator
	if translator == nil {
		translator = i18n.NewTranslator(i18n.LanguageEnglish)
	}
	mode := config.OutputMode
	if mode == "" {
		mode = output.ModeKeyboard
	}
	return &Manager{
		state:           pipeline.Idle,
		hotkey:          config.Hotkey,
		polish:          config.PolishEnabled,
		outputMode:      mode,
		translator:      translator,
		ui:              systraySurface{},
		icons:           renderIcons(),
		onReadyCallback: config.OnReady,
		onSettings:      config.OnSettings,
		onDictation:     config.OnDictation,
		onPolish:        config.OnPolish,
		onOutputMode:    config.OnOutputMode,
		onQuit:          config.OnQuit,
	}
}

// Run starts the system tray (blocking call)
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// onReady is called when systray is ready
func (m *Manager) onReady() {
	m.mu.Lock()
	m.menuSettings = m.add(systray.AddMenuItem("", ""), "menu.settings")
	m.menuDictation = m.add(systray.AddMenuItem("", ""), "menu.start_dictation")

	systray.AddSeparator()

	m.menuPolish = m.add(systray.AddMenuItemCheckbox("", "", m.polish), "menu.polish")
	m.menuOutput = m.add(systray.AddMenuItem("", ""), "menu.output_mode")
	m.menuKeyboard = m.add(m.menuOutput.AddSubMenuItemCheckbox("", "", m.outputMode == output.ModeKeyboard), "menu.output_keyboard")
	m.menuClipboard = m.add(m.menuOutput.AddSubMenuItemCheckbox("", "", m.outputMode == output.ModeClipboard), "menu.output_clipboard")

	systray.AddSeparator()

	m.menuQuit = m.add(systray.AddMenuItem("", ""), "menu.quit")
	m.relabel()
	m.render()
	m.mu.Unlock()

	go m.handleMenuEvents()

	if m.onReadyCallback != nil {
		m.onReadyCallback()
	}
}

func (m *Manager) add(item *systray.MenuItem, key string) *systray.MenuItem {
	m.labelled = append(m.labelled, labelledItem{item, key})
	return item
}

// onExit is called when systray is exiting
func (m *Manager) onExit() {}

// handleMenuEvents handles menu item clicks
func (m *Manager) handleMenuEvents() {
	for {
		select {
		case <-m.menuSettings.ClickedCh:
			if m.onSettings != nil {
				m.onSettings()
			}
		case <-m.menuDictation.ClickedCh:
			if m.onDictation != nil {
				go m.onDictation()
			}
		case <-m.menuPolish.ClickedCh:
			enabled := m.TogglePolish()
			if m.onPolish != nil {
				m.onPolish(enabled)
			}
		case <-m.menuKeyboard.ClickedCh:
			m.selectOutput(output.ModeKeyboard)
		case <-m.menuClipboard.ClickedCh:
			m.selectOutput(output.ModeClipboard)
		case <-m.menuQuit.ClickedCh:
			if m.onQuit != nil {
				m.onQuit()
			}
			systray.Quit()
			return
		}
	}
}

func (m *Manager) selectOutput(mode output.Mode) {
	m.SetOutputMode(mode)
	if m.onOutputMode != nil {
		m.onOutputMode(mode)
	}
}

// SetState updates the tray icon and tooltip for a pipeline state
func (m *Manager) SetState(state pipeline.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.render()
}

// State returns the state currently shown
func (m *Manager) State() pipeline.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetHotkey updates the hotkey mentioned in the idle tooltip
func (m *Manager) SetHotkey(hotkey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkey = hotkey
	m.render()
}

// SetLanguage switches the UI language and relabels the menu
func (m *Manager) SetLanguage(lang i18n.Language) {
	m.translator.SetLanguage(lang)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relabel()
	m.render()
}

// TogglePolish flips the polish checkbox and returns the new value
func (m *Manager) TogglePolish() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polish = !m.polish
	m.syncChecks()
	return m.polish
}

// SetPolish sets the polish checkbox
func (m *Manager) SetPolish(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polish = enabled
	m.syncChecks()
}

// SetOutputMode checks the item for mode
func (m *Manager) SetOutputMode(mode output.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputMode = mode
	m.syncChecks()
}

// Tooltip returns the tooltip for the current state
func (m *Manager) Tooltip() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tooltip()
}

func (m *Manager) tooltip() string {
	app := m.translator.Translate("app.name")
	status := m.translator.TranslateWithFormat("status."+m.state.String(), map[string]string{"hotkey": m.hotkey})
	return app + " - " + status
}

// render must be called with mu held.
func (m *Manager) render() {
	if icon := m.icons[m.state]; icon != nil {
		m.ui.SetIcon(icon)
	}
	m.ui.SetTooltip(m.tooltip())

	if m.menuDictation != nil {
		key := "menu.start_dictation"
		if m.state == pipeline.Recording {
			key = "menu.stop_dictation"
		}
		m.menuDictation.SetTitle(m.translator.Translate(key))
		if m.state == pipeline.Idle || m.state == pipeline.Recording {
			m.menuDictation.Enable()
		} else {
			m.menuDictation.Disable()
		}
	}
}

// relabel must be called with mu held.
func (m *Manager) relabel() {
	for _, l := range m.labelled {
		l.item.SetTitle(m.translator.Translate(l.key))
	}
	m.syncChecks()
}

func (m *Manager) syncChecks() {
	setChecked(m.menuPolish, m.polish)
	setChecked(m.menuKeyboard, m.outputMode == output.ModeKeyboard)
	setChecked(m.menuClipboard, m.outputMode == output.ModeClipboard)
}

func setChecked(item *systray.MenuItem, checked bool) {
	if item == nil {
		return
	}
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}

// Watch follows pipeline:state events until the channel is closed
func (m *Manager) Watch(ch <-chan events.Event) {
	for ev := range ch {
		if ev.Name != events.PipelineState {
			continue
		}
		if s, ok := ev.Payload.(pipeline.State); ok {
			m.SetState(s)
		}
	}
}

// Quit quits the system tray
func (m *Manager) Quit() {
	systray.Quit()
}
