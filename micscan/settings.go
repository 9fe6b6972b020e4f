package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/micscan/pkg/adc"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
// Changes apply to the next connection.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createMeterTab(state),
		createScanTab(state),
		createWiFiTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(520, 420))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(520, 420))
	d.Show()
}

// saveConfig validates and writes the configuration, reporting failures in a dialog.
func saveConfig(state *appState) {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := adc.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}
				state.cfg.Serial.Port = selectedPort
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil {
				state.cfg.Serial.BaudRate = baud
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createMeterTab creates the loud-event counter configuration tab.
func createMeterTab(state *appState) *container.TabItem {
	loudEntry := widget.NewEntry()
	loudEntry.SetText(strconv.Itoa(state.cfg.Meter.LoudThreshold))

	tripEntry := widget.NewEntry()
	tripEntry.SetText(strconv.Itoa(state.cfg.Meter.TripThreshold))

	resetCheck := widget.NewCheck("", nil)
	resetCheck.SetChecked(state.cfg.Meter.ResetOnQuiet)

	toggleCheck := widget.NewCheck("", nil)
	toggleCheck.SetChecked(state.cfg.Meter.ToggleOnTrip)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Loud Threshold (level)", Widget: loudEntry},
			{Text: "Trip Threshold (cycles)", Widget: tripEntry},
			{Text: "Reset On Quiet Cycle", Widget: resetCheck},
			{Text: "Toggle Scan Mode On Trip", Widget: toggleCheck},
		},
		OnSubmit: func() {
			if loud, err := strconv.Atoi(loudEntry.Text); err == nil {
				state.cfg.Meter.LoudThreshold = loud
			}
			if trip, err := strconv.Atoi(tripEntry.Text); err == nil {
				state.cfg.Meter.TripThreshold = trip
			}
			state.cfg.Meter.ResetOnQuiet = resetCheck.Checked
			state.cfg.Meter.ToggleOnTrip = toggleCheck.Checked
			saveConfig(state)
		},
	}

	return container.NewTabItem("Meter", form)
}

// createScanTab creates the network probe configuration tab.
func createScanTab(state *appState) *container.TabItem {
	targetEntry := widget.NewEntry()
	targetEntry.SetText(state.cfg.Scan.TargetSSID)

	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(state.cfg.Scan.Interval.String())

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Scan.Timeout.String())

	backendSelect := widget.NewSelect([]string{"nmcli", "mock"}, nil)
	backendSelect.SetSelected(state.cfg.Scan.Backend)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Target SSID", Widget: targetEntry},
			{Text: "Interval", Widget: intervalEntry},
			{Text: "Scan Timeout", Widget: timeoutEntry},
			{Text: "Backend", Widget: backendSelect},
		},
		OnSubmit: func() {
			state.cfg.Scan.TargetSSID = targetEntry.Text
			if iv, err := time.ParseDuration(intervalEntry.Text); err == nil {
				state.cfg.Scan.Interval = iv
			}
			if to, err := time.ParseDuration(timeoutEntry.Text); err == nil {
				state.cfg.Scan.Timeout = to
			}
			if backendSelect.Selected != "" {
				state.cfg.Scan.Backend = backendSelect.Selected
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Scan", form)
}

// createWiFiTab creates the start-up network join configuration tab.
func createWiFiTab(state *appState) *container.TabItem {
	ssidEntry := widget.NewEntry()
	ssidEntry.SetText(state.cfg.WiFi.SSID)

	passwordEntry := widget.NewPasswordEntry()
	passwordEntry.SetText(state.cfg.WiFi.Password)

	joinTimeoutEntry := widget.NewEntry()
	joinTimeoutEntry.SetText(state.cfg.WiFi.JoinTimeout.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "SSID (empty = skip)", Widget: ssidEntry},
			{Text: "Password", Widget: passwordEntry},
			{Text: "Join Timeout", Widget: joinTimeoutEntry},
		},
		OnSubmit: func() {
			state.cfg.WiFi.SSID = ssidEntry.Text
			state.cfg.WiFi.Password = passwordEntry.Text
			if jt, err := time.ParseDuration(joinTimeoutEntry.Text); err == nil {
				state.cfg.WiFi.JoinTimeout = jt
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Wi-Fi", form)
}

// createMockTab creates the simulated microphone configuration tab.
func createMockTab(state *appState) *container.TabItem {
	toneEntry := widget.NewEntry()
	toneEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.ToneHz))

	quietEntry := widget.NewEntry()
	quietEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.QuietAmp))

	loudEntry := widget.NewEntry()
	loudEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.LoudAmp))

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.Noise))

	loudDurationEntry := widget.NewEntry()
	loudDurationEntry.SetText(state.cfg.Mock.LoudDuration.String())

	loudPeriodEntry := widget.NewEntry()
	loudPeriodEntry.SetText(state.cfg.Mock.LoudPeriod.String())

	samplePeriodEntry := widget.NewEntry()
	samplePeriodEntry.SetText(state.cfg.Mock.SamplePeriod.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Tone (Hz)", Widget: toneEntry},
			{Text: "Quiet Amplitude (counts)", Widget: quietEntry},
			{Text: "Loud Amplitude (counts)", Widget: loudEntry},
			{Text: "Noise (counts)", Widget: noiseEntry},
			{Text: "Loud Duration", Widget: loudDurationEntry},
			{Text: "Loud Period", Widget: loudPeriodEntry},
			{Text: "Sample Period", Widget: samplePeriodEntry},
		},
		OnSubmit: func() {
			if tone, err := strconv.ParseFloat(toneEntry.Text, 64); err == nil {
				state.cfg.Mock.ToneHz = tone
			}
			if quiet, err := strconv.ParseFloat(quietEntry.Text, 64); err == nil {
				state.cfg.Mock.QuietAmp = quiet
			}
			if loud, err := strconv.ParseFloat(loudEntry.Text, 64); err == nil {
				state.cfg.Mock.LoudAmp = loud
			}
			if noise, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil {
				state.cfg.Mock.Noise = noise
			}
			if ld, err := time.ParseDuration(loudDurationEntry.Text); err == nil {
				state.cfg.Mock.LoudDuration = ld
			}
			if lp, err := time.ParseDuration(loudPeriodEntry.Text); err == nil {
				state.cfg.Mock.LoudPeriod = lp
			}
			if sp, err := time.ParseDuration(samplePeriodEntry.Text); err == nil {
				state.cfg.Mock.SamplePeriod = sp
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
