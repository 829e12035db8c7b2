package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/agreement/agreement"
	"yashubustudio/agreement/internal/config"
)

const logDebounceInterval = 150 * time.Millisecond

type uiState struct {
	service    *agreement.Service
	configPath string
	// ctx carries the viewer logger into every analysis run.
	ctx context.Context

	w             fyne.Window
	inputPath     *widget.Entry
	analysisSel   *widget.Select
	hint          *widget.Label
	log           *widget.Entry
	status        *widget.Label
	progress      *widget.ProgressBarInfinite
	configSummary *widget.Label
	resTbl        *widget.Table
	result        *agreement.Table
	data          grid
	statusBind    binding.String
	logBind       binding.String
	logs          *logSink
	logUpdateCh   chan struct{}

	runBtn    *widget.Button
	exportBtn *widget.Button
	openBtn   *widget.Button
}

func (u *uiState) build(a fyne.App, svc *agreement.Service) {
	u.service = svc
	u.w = a.NewWindow("Annotation Agreement")

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("Ready")
	u.logBind = binding.NewString()
	u.startLogUpdater()

	u.inputPath = widget.NewEntry()
	u.inputPath.SetPlaceHolder("Input CSV")
	u.hint = widget.NewLabel("")
	u.hint.Wrapping = fyne.TextWrapWord
	u.analysisSel = widget.NewSelect(analysisLabels(), func(label string) {
		if an, ok := findAnalysis(label); ok {
			u.hint.SetText("Expects: " + an.Hint)
		}
	})
	u.analysisSel.SetSelectedIndex(0)

	u.log = widget.NewEntryWithData(u.logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.SetPlaceHolder("Log")
	u.log.Disable()

	u.status = widget.NewLabelWithData(u.statusBind)
	u.progress = widget.NewProgressBarInfinite()
	u.progress.Hide()
	u.configSummary = widget.NewLabel("")
	u.configSummary.Wrapping = fyne.TextWrapWord

	u.runBtn = widget.NewButtonWithIcon("Run", theme.ConfirmIcon(), func() { u.onRun() })
	u.exportBtn = widget.NewButtonWithIcon("Export CSV", theme.DocumentSaveIcon(), func() { u.onExport() })
	u.openBtn = widget.NewButtonWithIcon("Open file", theme.FolderOpenIcon(), func() { u.onOpenFile() })
	settingsBtn := widget.NewButtonWithIcon("Settings", theme.SettingsIcon(), func() { u.openSettings() })

	u.resTbl = widget.NewTable(
		func() (int, int) {
			cols := len(u.data.Header)
			if cols == 0 {
				return 0, 0
			}
			return len(u.data.Rows) + 1, cols
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			lbl := obj.(*widget.Label)
			lbl.SetText(u.data.cell(id.Row, id.Col))
			if id.Row == 0 {
				lbl.TextStyle = fyne.TextStyle{Bold: true}
				lbl.Alignment = fyne.TextAlignCenter
			} else {
				lbl.TextStyle = fyne.TextStyle{}
				lbl.Alignment = fyne.TextAlignLeading
			}
		},
	)

	left := container.NewVBox(
		widget.NewLabelWithStyle("Input", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, u.openBtn, u.inputPath),
		u.analysisSel,
		u.hint,
		container.NewGridWithColumns(3, u.runBtn, u.exportBtn, settingsBtn),
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Progress", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.progress,
		u.status,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Configuration", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.configSummary,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	leftPane := container.NewBorder(left, nil, nil, nil, u.log)

	split := container.NewHSplit(leftPane, u.resTbl)
	split.Offset = 0.35

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1180, 760))
	u.updateConfigSummary()
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		if b {
			u.runBtn.Disable()
			u.exportBtn.Disable()
			u.openBtn.Disable()
			u.progress.Show()
			u.progress.Start()
		} else {
			u.runBtn.Enable()
			u.exportBtn.Enable()
			u.openBtn.Enable()
			u.progress.Stop()
			u.progress.Hide()
		}
	})
}

func (u *uiState) requestLogFlush() {
	if u.logUpdateCh == nil {
		return
	}
	select {
	case u.logUpdateCh <- struct{}{}:
	default:
	}
}

func (u *uiState) startLogUpdater() {
	if u.logUpdateCh != nil {
		return
	}
	u.logUpdateCh = make(chan struct{}, 1)
	go u.logUpdateLoop()
}

func (u *uiState) logUpdateLoop() {
	timer := time.NewTimer(logDebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-u.logUpdateCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(logDebounceInterval)
		case <-timer.C:
			_ = u.logBind.Set(u.logs.String())
		}
	}
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) updateConfigSummary() {
	u.configSummary.SetText(configSummary(u.service.Config()))
}

func (u *uiState) showResult(t *agreement.Table) {
	u.result = t
	u.data = gridFromTable(t)
	for i, w := range u.data.columnWidths() {
		u.resTbl.SetColumnWidth(i, w)
	}
	u.resTbl.Refresh()
}

func (u *uiState) onRun() {
	input := strings.TrimSpace(u.inputPath.Text)
	if input == "" {
		dialog.ShowInformation("Info", "Choose an input file first", u.w)
		return
	}
	an, ok := findAnalysis(u.analysisSel.Selected)
	if !ok {
		dialog.ShowInformation("Info", "Choose an analysis", u.w)
		return
	}
	u.setStatus(an.Label + "...")
	u.setBusy(true)
	start := time.Now()

	go func() {
		t, err := an.Run(u.runContext(), u.service, input)
		u.setBusy(false)
		if err != nil {
			fyne.Do(func() { dialog.ShowError(err, u.w) })
			u.setStatus("Error")
			return
		}
		fyne.Do(func() { u.showResult(t) })
		u.setStatus(fmt.Sprintf("%s: %d rows (%.1fs)", an.Label, t.Len(), time.Since(start).Seconds()))
	}()
}

func (u *uiState) runContext() context.Context {
	if u.ctx == nil {
		return context.Background()
	}
	return u.ctx
}

func (u *uiState) onExport() {
	if u.result == nil || u.result.Len() == 0 {
		dialog.ShowInformation("Info", "Nothing to export", u.w)
		return
	}
	result := u.result
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := agreement.EncodeTable(uc, result); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.setStatus(fmt.Sprintf("Exported %d rows to %s", result.Len(), uc.URI().Name()))
	}, u.w)
	fd.SetFileName("results.csv")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	fd.Show()
}

func (u *uiState) onOpenFile() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer rc.Close()
		path := rc.URI().Path()
		u.inputPath.SetText(path)
		u.setStatus("Selected " + filepath.Base(path))
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv", ".tsv", ".txt"}))
	fd.Show()
}

func (u *uiState) openSettings() {
	cfg := u.service.Config()
	annotators := widget.NewEntry()
	annotators.SetText(strings.Join(cfg.Annotators, ", "))
	categories := widget.NewEntry()
	categories.SetText(strings.Join(cfg.Categories, ", "))
	itemColumn := widget.NewEntry()
	itemColumn.SetText(cfg.ItemColumn)
	saveCheck := widget.NewCheck("Save to "+u.configPath, nil)

	form := &widget.Form{Items: []*widget.FormItem{
		{Text: "Annotators", Widget: annotators},
		{Text: "Categories", Widget: categories},
		{Text: "Item column", Widget: itemColumn},
		{Text: "", Widget: saveCheck},
	}}

	dialog.NewCustomConfirm("Settings", "OK", "Cancel", form, func(ok bool) {
		if !ok {
			return
		}
		newCfg := cfg.Clone()
		newCfg.Annotators = splitList(annotators.Text)
		newCfg.Categories = splitList(categories.Text)
		newCfg.ItemColumn = strings.TrimSpace(itemColumn.Text)
		if err := u.service.UpdateConfig(newCfg); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if saveCheck.Checked {
			if err := config.Save(u.configPath, u.service.Config()); err != nil {
				dialog.ShowError(err, u.w)
				return
			}
		}
		u.updateConfigSummary()
		u.setStatus("Settings updated")
	}, u.w).Show()
}
